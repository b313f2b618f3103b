package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

// chatRow stores messages and participants as JSON documents inside the
// chat row, matching the aggregate shape the API serves: a chat is always
// read and written whole.
type chatRow struct {
	ID            string `gorm:"primaryKey"`
	CategoriesID  string `gorm:"index"`
	Title         string
	Resolved      bool
	Unread        bool
	PublicURL     string
	Balance       int64
	ClaimedByID   string
	ClaimedByName string
	Participants  string `gorm:"type:text"`
	Messages      string `gorm:"type:text"`
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (chatRow) TableName() string { return "chats" }

func chatToRow(c model.Chat) (chatRow, error) {
	participants, err := json.Marshal(c.Participants)
	if err != nil {
		return chatRow{}, err
	}
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return chatRow{}, err
	}
	return chatRow{
		ID:            c.ID,
		CategoriesID:  c.CategoriesID,
		Title:         c.Title,
		Resolved:      c.Resolved,
		Unread:        c.Unread,
		PublicURL:     c.PublicURL,
		Balance:       c.Balance,
		ClaimedByID:   c.ClaimedByID,
		ClaimedByName: c.ClaimedByName,
		Participants:  string(participants),
		Messages:      string(messages),
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}, nil
}

func rowToChat(r chatRow) (model.Chat, error) {
	c := model.Chat{
		ID:            r.ID,
		CategoriesID:  r.CategoriesID,
		Title:         r.Title,
		Resolved:      r.Resolved,
		Unread:        r.Unread,
		PublicURL:     r.PublicURL,
		Balance:       r.Balance,
		ClaimedByID:   r.ClaimedByID,
		ClaimedByName: r.ClaimedByName,
		Participants:  []model.Participant{},
		Messages:      []model.Message{},
		LastMessageAt: r.LastMessageAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Participants != "" {
		if err := json.Unmarshal([]byte(r.Participants), &c.Participants); err != nil {
			return model.Chat{}, err
		}
	}
	if r.Messages != "" {
		if err := json.Unmarshal([]byte(r.Messages), &c.Messages); err != nil {
			return model.Chat{}, err
		}
	}
	return c, nil
}

type GormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) Create(ctx context.Context, chat *model.Chat) error {
	row, err := chatToRow(*chat)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *GormChatRepository) Get(ctx context.Context, chatID string) (model.Chat, error) {
	var row chatRow
	err := r.db.WithContext(ctx).Where("id = ?", chatID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Chat{}, chaterrors.ErrNotFound
		}
		return model.Chat{}, err
	}
	return rowToChat(row)
}

func (r *GormChatRepository) GetForCategory(ctx context.Context, categoriesID, chatID string) (model.Chat, error) {
	var row chatRow
	err := r.db.WithContext(ctx).
		Where("id = ? AND categories_id = ?", chatID, categoriesID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Chat{}, chaterrors.ErrNotFound
		}
		return model.Chat{}, err
	}
	return rowToChat(row)
}

func (r *GormChatRepository) ListForCategories(ctx context.Context, categoriesIDs []string) ([]model.Chat, error) {
	if len(categoriesIDs) == 0 {
		return nil, nil
	}
	var rows []chatRow
	err := r.db.WithContext(ctx).
		Where("categories_id IN ?", categoriesIDs).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chats := make([]model.Chat, 0, len(rows))
	for _, row := range rows {
		chat, err := rowToChat(row)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *GormChatRepository) Update(ctx context.Context, chat model.Chat) error {
	row, err := chatToRow(chat)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Save(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *GormChatRepository) Delete(ctx context.Context, categoriesID, chatID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND categories_id = ?", chatID, categoriesID).
		Delete(&chatRow{}).Error
}

func (r *GormChatRepository) DeleteEmptyBefore(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("(messages = '' OR messages = '[]' OR messages = 'null') AND created_at < ?", cutoff).
		Delete(&chatRow{}).Error
}
