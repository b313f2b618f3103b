package service

import (
	"context"
	"encoding/json"

	"github.com/lnbits/chat/pkg/model"
)

// Broadcaster is the fanout side of the live-event pipeline, satisfied by
// the redis publisher. Broadcast failures are logged and never fail the
// request that produced them.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

func (s *ChatService) broadcastChat(ctx context.Context, chatID string, ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Warnf("chat %s: marshal %s event: %v", chatID, ev.Type, err)
		return
	}
	if err := s.broadcaster.Publish(ctx, model.TopicChat(chatID), payload); err != nil {
		s.log.Warnf("chat %s: broadcast %s event: %v", chatID, ev.Type, err)
	}
}

// broadcastBalance publishes on both the chat topic and the dedicated
// balance topic; the second feed is a redundancy path for widgets that only
// watch the balance.
func (s *ChatService) broadcastBalance(ctx context.Context, chatID string, balance int64) {
	ev := model.NewBalanceEvent(balance)
	s.broadcastChat(ctx, chatID, ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, model.TopicBalance(chatID), payload); err != nil {
		s.log.Warnf("chat %s: broadcast balance: %v", chatID, err)
	}
}

// broadcastSettlement notifies the payment-hash topic that the invoice is
// no longer pending. Clients awaiting the settlement close on it.
func (s *ChatService) broadcastSettlement(ctx context.Context, paymentHash string, amount int64) {
	payload, err := json.Marshal(model.Settlement{
		PaymentHash: paymentHash,
		Pending:     false,
		Amount:      amount,
	})
	if err != nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, paymentHash, payload); err != nil {
		s.log.Warnf("payment %s: broadcast settlement: %v", paymentHash, err)
	}
}
