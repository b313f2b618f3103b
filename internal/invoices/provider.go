// Package invoices abstracts the external Lightning payment processor.
// Settlement mechanics live entirely on the other side of this boundary;
// the chat service only creates invoices and learns about settlements
// through the webhook ingress.
package invoices

import (
	"context"
)

// Invoice is a freshly created payment request.
type Invoice struct {
	PaymentHash string
	Bolt11      string
}

// CreateRequest carries everything the processor needs to issue an invoice.
// Extra is echoed back on settlement notifications.
type CreateRequest struct {
	Wallet string
	Amount int64
	Memo   string
	Extra  map[string]string
}

// PaymentStatus is the processor's own view of an invoice.
type PaymentStatus struct {
	Paid   bool
	Amount int64
}

// Provider is the payment processor surface the chat service consumes.
type Provider interface {
	// CreateInvoice issues an invoice against a wallet.
	CreateInvoice(ctx context.Context, req CreateRequest) (Invoice, error)
	// CheckPayment confirms an invoice against the processor's records.
	// Settlement notifications are applied only after the processor
	// reports the invoice as paid.
	CheckPayment(ctx context.Context, paymentHash string) (PaymentStatus, error)
	// SplitPayment forwards a share of a settled amount from the category
	// wallet to a user's own wallet. Best effort, failures are logged by
	// the caller and never fatal.
	SplitPayment(ctx context.Context, fromWallet, toUserID string, amount int64, memo string) error
}

// RateConverter turns a fiat amount into satoshis for categories priced in
// a non-sat denomination.
type RateConverter interface {
	FiatAsSats(ctx context.Context, amount float64, currency string) (int64, error)
}
