package service

import (
	"context"
	"time"

	"github.com/lnbits/chat/internal/repository"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

// CategoryService owns the admin-side category CRUD.
type CategoryService struct {
	categories repository.CategoryRepository
	log        *logger.Logger
}

func NewCategoryService(categories repository.CategoryRepository, log *logger.Logger) *CategoryService {
	if log == nil {
		log = logger.Nop()
	}
	return &CategoryService{categories: categories, log: log}
}

// maxClaimSplit leaves the category owner at least 10 percent of every
// settled amount.
const maxClaimSplit = 90

// normalizeCategory enforces the cross-field rules: a free category cannot
// draw from a funded balance or split claims, and the claim split is
// clamped to [0, maxClaimSplit].
func normalizeCategory(category *model.Category) {
	if !category.Paid {
		category.Lnurlp = false
		category.ClaimSplit = 0
	}
	if category.ClaimSplit < 0 {
		category.ClaimSplit = 0
	}
	if category.ClaimSplit > maxClaimSplit {
		category.ClaimSplit = maxClaimSplit
	}
}

func (s *CategoryService) Create(ctx context.Context, userID string, data model.CreateCategory) (model.Category, error) {
	now := time.Now().UTC()
	category := model.Category{
		ID:             shortHash(),
		UserID:         userID,
		Name:           data.Name,
		Wallet:         data.Wallet,
		Paid:           data.Paid,
		Lnurlp:         data.Lnurlp,
		Tips:           data.Tips,
		Chars:          data.Chars,
		PriceChars:     data.PriceChars,
		Denomination:   data.Denomination,
		ClaimSplit:     data.ClaimSplit,
		NotifyTelegram: data.NotifyTelegram,
		NotifyNostr:    data.NotifyNostr,
		NotifyEmail:    data.NotifyEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	normalizeCategory(&category)
	if err := s.categories.Create(ctx, &category); err != nil {
		return model.Category{}, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, categoriesID string, data model.CreateCategory) (model.Category, error) {
	category, err := s.categories.Get(ctx, userID, categoriesID)
	if err != nil {
		return model.Category{}, err
	}
	category.Name = data.Name
	category.Wallet = data.Wallet
	category.Paid = data.Paid
	category.Lnurlp = data.Lnurlp
	category.Tips = data.Tips
	category.Chars = data.Chars
	category.PriceChars = data.PriceChars
	category.Denomination = data.Denomination
	category.ClaimSplit = data.ClaimSplit
	category.NotifyTelegram = data.NotifyTelegram
	category.NotifyNostr = data.NotifyNostr
	category.NotifyEmail = data.NotifyEmail
	category.UpdatedAt = time.Now().UTC()
	normalizeCategory(&category)
	if err := s.categories.Update(ctx, category); err != nil {
		return model.Category{}, err
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, categoriesID string) (model.Category, error) {
	return s.categories.Get(ctx, userID, categoriesID)
}

// GetPublic returns the viewer-facing projection used by the join flow.
func (s *CategoryService) GetPublic(ctx context.Context, categoriesID string) (model.PublicCategory, error) {
	category, err := s.categories.GetByID(ctx, categoriesID)
	if err != nil {
		return model.PublicCategory{}, err
	}
	return category.Public(), nil
}

func (s *CategoryService) ListIDs(ctx context.Context, userID string) ([]string, error) {
	return s.categories.ListIDsByUser(ctx, userID)
}

func (s *CategoryService) Delete(ctx context.Context, userID, categoriesID string) error {
	return s.categories.Delete(ctx, userID, categoriesID)
}
