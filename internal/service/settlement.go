package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

// PaymentNotification is the settlement ingress payload. Extra carries the
// invoice metadata stamped at creation time.
type PaymentNotification struct {
	PaymentHash string            `json:"payment_hash"`
	Amount      int64             `json:"amount"`
	Extra       map[string]string `json:"extra"`
}

// PaymentReceived applies one settled invoice. The notification is only a
// hint: the invoice is confirmed against the payment processor first, so a
// forged notification settles nothing. Safe under redelivery: a payment
// that is unknown or already applied is a no-op. Balance-type payments top
// up the chat balance; message and tip payments append the message
// recorded when the invoice was issued.
func (s *ChatService) PaymentReceived(ctx context.Context, notif PaymentNotification) error {
	if notif.Extra["tag"] != "chat" {
		return nil
	}
	status, err := s.provider.CheckPayment(ctx, notif.PaymentHash)
	if err != nil {
		return fmt.Errorf("verify payment %s: %w", notif.PaymentHash, err)
	}
	if !status.Paid {
		return fmt.Errorf("%w: payment %s is not settled at the processor", chaterrors.ErrRejected, notif.PaymentHash)
	}
	if notif.Extra["payment_type"] == model.PaymentTypeBalance {
		return s.applyBalancePayment(ctx, notif, status.Amount)
	}

	payment, err := s.payments.Get(ctx, notif.PaymentHash)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			s.log.Warnf("payment %s: no recorded invoice, ignoring", notif.PaymentHash)
			return nil
		}
		return err
	}
	if payment.Paid {
		return nil
	}
	payment.Paid = true
	if err := s.payments.Update(ctx, payment); err != nil {
		return err
	}

	chat, err := s.chats.Get(ctx, payment.ChatID)
	if err != nil {
		return err
	}
	category, err := s.categories.GetByID(ctx, payment.CategoriesID)
	if err != nil {
		return err
	}

	messageType := model.MessageTypeMessage
	if payment.PaymentType == model.PaymentTypeTip {
		messageType = model.MessageTypeTip
	}
	message := model.Message{
		ID:          shortHash(),
		SenderID:    payment.SenderID,
		SenderName:  payment.SenderName,
		SenderRole:  payment.SenderRole,
		Message:     payment.Message,
		CreatedAt:   time.Now().UTC(),
		Amount:      payment.Amount,
		MessageType: messageType,
	}
	if err := ensureParticipant(&chat, payment.SenderID, payment.SenderName, payment.SenderRole); err != nil {
		// A full roster never blocks a paid message; the seat is simply
		// not taken.
		s.log.Warnf("chat %s: %v", chat.ID, err)
	}
	if len(chat.Messages) == 0 {
		s.notifyNewChat(category, chat, payment.Message)
	}
	if err := s.appendMessage(ctx, &chat, message, true); err != nil {
		return err
	}
	if payment.PaymentType == model.PaymentTypeMessage {
		s.maybePayClaimSplit(ctx, category, chat, payment.Amount)
	}
	s.broadcastSettlement(ctx, payment.PaymentHash, payment.Amount)
	return nil
}

// applyBalancePayment tops up the chat balance from an lnurlp-funded
// invoice. These invoices are issued by the external pay link, so there is
// no recorded ChatPayment row to key idempotence on; the hash itself is
// recorded on first sight. Only the processor-confirmed amount is
// credited, never the notification's.
func (s *ChatService) applyBalancePayment(ctx context.Context, notif PaymentNotification, amount int64) error {
	chatID := notif.Extra["chat_id"]
	if chatID == "" {
		return fmt.Errorf("%w: balance payment without chat id", chaterrors.ErrValidation)
	}
	if _, err := s.payments.Get(ctx, notif.PaymentHash); err == nil {
		return nil
	} else if !errors.Is(err, chaterrors.ErrNotFound) {
		return err
	}

	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return err
	}
	record := model.ChatPayment{
		PaymentHash:  notif.PaymentHash,
		ChatID:       chat.ID,
		CategoriesID: chat.CategoriesID,
		Amount:       amount,
		PaymentType:  model.PaymentTypeBalance,
		Paid:         true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, &record); err != nil {
		if errors.Is(err, chaterrors.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	chat.Balance += amount
	chat.UpdatedAt = time.Now().UTC()
	if err := s.chats.Update(ctx, chat); err != nil {
		return err
	}
	s.broadcastBalance(ctx, chat.ID, chat.Balance)
	s.broadcastSettlement(ctx, notif.PaymentHash, amount)
	return nil
}
