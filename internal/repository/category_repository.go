package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

type categoryRow struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index"`
	Name           string
	Wallet         string
	Paid           bool
	Lnurlp         bool
	Tips           bool
	Chars          int
	PriceChars     float64
	Denomination   string
	ClaimSplit     float64
	NotifyTelegram string
	NotifyNostr    string
	NotifyEmail    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (categoryRow) TableName() string { return "chat_categories" }

func categoryToRow(c model.Category) categoryRow {
	return categoryRow{
		ID:             c.ID,
		UserID:         c.UserID,
		Name:           c.Name,
		Wallet:         c.Wallet,
		Paid:           c.Paid,
		Lnurlp:         c.Lnurlp,
		Tips:           c.Tips,
		Chars:          c.Chars,
		PriceChars:     c.PriceChars,
		Denomination:   c.Denomination,
		ClaimSplit:     c.ClaimSplit,
		NotifyTelegram: c.NotifyTelegram,
		NotifyNostr:    c.NotifyNostr,
		NotifyEmail:    c.NotifyEmail,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func rowToCategory(r categoryRow) model.Category {
	return model.Category{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		Wallet:         r.Wallet,
		Paid:           r.Paid,
		Lnurlp:         r.Lnurlp,
		Tips:           r.Tips,
		Chars:          r.Chars,
		PriceChars:     r.PriceChars,
		Denomination:   r.Denomination,
		ClaimSplit:     r.ClaimSplit,
		NotifyTelegram: r.NotifyTelegram,
		NotifyNostr:    r.NotifyNostr,
		NotifyEmail:    r.NotifyEmail,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type GormCategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	row := categoryToRow(*category)
	res := r.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *GormCategoryRepository) Get(ctx context.Context, userID, categoriesID string) (model.Category, error) {
	var row categoryRow
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", categoriesID, userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Category{}, chaterrors.ErrNotFound
		}
		return model.Category{}, err
	}
	return rowToCategory(row), nil
}

func (r *GormCategoryRepository) GetByID(ctx context.Context, categoriesID string) (model.Category, error) {
	var row categoryRow
	err := r.db.WithContext(ctx).Where("id = ?", categoriesID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Category{}, chaterrors.ErrNotFound
		}
		return model.Category{}, err
	}
	return rowToCategory(row), nil
}

func (r *GormCategoryRepository) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&categoryRow{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormCategoryRepository) Update(ctx context.Context, category model.Category) error {
	row := categoryToRow(category)
	res := r.db.WithContext(ctx).Save(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *GormCategoryRepository) Delete(ctx context.Context, userID, categoriesID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", categoriesID, userID).
		Delete(&categoryRow{}).Error
}
