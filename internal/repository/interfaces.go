package repository

import (
	"context"
	"time"

	"github.com/lnbits/chat/pkg/model"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Get(ctx context.Context, userID, categoriesID string) (model.Category, error)
	GetByID(ctx context.Context, categoriesID string) (model.Category, error)
	ListIDsByUser(ctx context.Context, userID string) ([]string, error)
	Update(ctx context.Context, category model.Category) error
	Delete(ctx context.Context, userID, categoriesID string) error
}

type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	Get(ctx context.Context, chatID string) (model.Chat, error)
	GetForCategory(ctx context.Context, categoriesID, chatID string) (model.Chat, error)
	ListForCategories(ctx context.Context, categoriesIDs []string) ([]model.Chat, error)
	Update(ctx context.Context, chat model.Chat) error
	Delete(ctx context.Context, categoriesID, chatID string) error
	// DeleteEmptyBefore removes chats that never got a message and are
	// older than the cutoff.
	DeleteEmptyBefore(ctx context.Context, cutoff time.Time) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.ChatPayment) error
	Get(ctx context.Context, paymentHash string) (model.ChatPayment, error)
	Update(ctx context.Context, payment model.ChatPayment) error
}
