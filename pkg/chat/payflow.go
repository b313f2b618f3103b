package chat

import (
	"context"
	"fmt"
	"sync"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/feed"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

type Purpose string

const (
	PurposeMessage Purpose = "message"
	PurposeTip     Purpose = "tip"
)

// PendingPayment is a deferred send: the service answered with an invoice
// instead of an immediate effect. The payment-hash feed behind it delivers
// exactly one settlement; the effect itself (the message or tip event)
// arrives on the chat topic and is merged there, never from this path.
type PendingPayment struct {
	PaymentHash string
	Invoice     string
	Amount      int64
	Purpose     Purpose

	ch         *feed.Channel
	settleOnce sync.Once
	cancelOnce sync.Once
	settled    chan struct{}
	canceled   chan struct{}
}

// Settled is closed once the settlement notification arrives. Duplicate
// delivery of the notification settles once.
func (p *PendingPayment) Settled() <-chan struct{} { return p.settled }

// Await blocks until settlement, cancellation or ctx expiry. No timeout is
// imposed here; the invoice stays payable until the viewer gives up.
func (p *PendingPayment) Await(ctx context.Context) error {
	select {
	case <-p.settled:
		return nil
	case <-p.canceled:
		return chaterrors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel abandons the local wait and releases the feed. It never rescinds
// the invoice server-side; paying it afterwards still takes effect.
func (p *PendingPayment) Cancel() {
	p.cancelOnce.Do(func() {
		if p.ch != nil {
			p.ch.Close()
		}
		close(p.canceled)
	})
}

func (p *PendingPayment) markSettled() {
	p.settleOnce.Do(func() {
		if p.ch != nil {
			p.ch.Close()
		}
		close(p.settled)
	})
}

// openSettlementFeed wires a payment-hash subscription into the pending
// payment. An open failure is reported but leaves the pending payment
// usable: the invoice is still valid even when the notifier is not.
func openSettlementFeed(ctx context.Context, baseURL string, p *PendingPayment, log *logger.Logger) error {
	ch, err := feed.New(baseURL, p.PaymentHash, log)
	if err != nil {
		return fmt.Errorf("error waiting for payment: %w", err)
	}
	p.ch = ch
	handler := func(raw []byte) error {
		st, err := model.DecodeSettlement(raw)
		if err != nil {
			return err
		}
		if !st.Pending {
			log.Infof("payment received for %s", p.PaymentHash)
			p.markSettled()
		}
		return nil
	}
	if err := ch.Open(ctx, handler); err != nil {
		return fmt.Errorf("error waiting for payment: %w", err)
	}
	return nil
}

func newPendingPayment(pr model.PaymentRequest, purpose Purpose) *PendingPayment {
	return &PendingPayment{
		PaymentHash: pr.PaymentHash,
		Invoice:     pr.PaymentRequest,
		Amount:      pr.Amount,
		Purpose:     purpose,
		settled:     make(chan struct{}),
		canceled:    make(chan struct{}),
	}
}
