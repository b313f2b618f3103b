package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

type paymentRow struct {
	PaymentHash  string `gorm:"primaryKey"`
	ChatID       string `gorm:"index"`
	CategoriesID string
	SenderID     string
	SenderName   string
	SenderRole   string
	Message      string
	Amount       int64
	PaymentType  string
	Paid         bool
	CreatedAt    time.Time
}

func (paymentRow) TableName() string { return "chat_payments" }

func paymentToRow(p model.ChatPayment) paymentRow {
	return paymentRow{
		PaymentHash:  p.PaymentHash,
		ChatID:       p.ChatID,
		CategoriesID: p.CategoriesID,
		SenderID:     p.SenderID,
		SenderName:   p.SenderName,
		SenderRole:   p.SenderRole,
		Message:      p.Message,
		Amount:       p.Amount,
		PaymentType:  p.PaymentType,
		Paid:         p.Paid,
		CreatedAt:    p.CreatedAt,
	}
}

func rowToPayment(r paymentRow) model.ChatPayment {
	return model.ChatPayment{
		PaymentHash:  r.PaymentHash,
		ChatID:       r.ChatID,
		CategoriesID: r.CategoriesID,
		SenderID:     r.SenderID,
		SenderName:   r.SenderName,
		SenderRole:   r.SenderRole,
		Message:      r.Message,
		Amount:       r.Amount,
		PaymentType:  r.PaymentType,
		Paid:         r.Paid,
		CreatedAt:    r.CreatedAt,
	}
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *model.ChatPayment) error {
	row := paymentToRow(*payment)
	res := r.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *GormPaymentRepository) Get(ctx context.Context, paymentHash string) (model.ChatPayment, error) {
	var row paymentRow
	err := r.db.WithContext(ctx).Where("payment_hash = ?", paymentHash).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ChatPayment{}, chaterrors.ErrNotFound
		}
		return model.ChatPayment{}, err
	}
	return rowToPayment(row), nil
}

func (r *GormPaymentRepository) Update(ctx context.Context, payment model.ChatPayment) error {
	row := paymentToRow(payment)
	res := r.db.WithContext(ctx).Save(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}
