package model

import "time"

// Chat is one conversation thread scoped to a category.
type Chat struct {
	ID            string        `json:"id"`
	CategoriesID  string        `json:"categories_id"`
	Title         string        `json:"title,omitempty"`
	Resolved      bool          `json:"resolved"`
	Unread        bool          `json:"unread"`
	PublicURL     string        `json:"public_url,omitempty"`
	Balance       int64         `json:"balance"`
	ClaimedByID   string        `json:"claimed_by_id,omitempty"`
	ClaimedByName string        `json:"claimed_by_name,omitempty"`
	Participants  []Participant `json:"participants"`
	Messages      []Message     `json:"messages"`
	LastMessageAt *time.Time    `json:"last_message_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Category is the namespace under which chats are created. Owned by an
// admin account; the public projection below is what viewers see.
type Category struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Wallet         string    `json:"wallet,omitempty"`
	Paid           bool      `json:"paid"`
	Lnurlp         bool      `json:"lnurlp"`
	Tips           bool      `json:"tips"`
	Chars          int       `json:"chars,omitempty"`
	PriceChars     float64   `json:"price_chars,omitempty"`
	Denomination   string    `json:"denomination,omitempty"`
	ClaimSplit     float64   `json:"claim_split,omitempty"`
	NotifyTelegram string    `json:"notify_telegram,omitempty"`
	NotifyNostr    string    `json:"notify_nostr,omitempty"`
	NotifyEmail    string    `json:"notify_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Public returns the viewer-facing projection of the category.
func (c Category) Public() PublicCategory {
	return PublicCategory{
		ID:           c.ID,
		Name:         c.Name,
		Paid:         c.Paid,
		Lnurlp:       c.Lnurlp,
		Tips:         c.Tips,
		Chars:        c.Chars,
		PriceChars:   c.PriceChars,
		Denomination: c.Denomination,
		ClaimSplit:   c.ClaimSplit,
	}
}

type PublicCategory struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Paid         bool    `json:"paid"`
	Lnurlp       bool    `json:"lnurlp"`
	Tips         bool    `json:"tips"`
	Chars        int     `json:"chars,omitempty"`
	PriceChars   float64 `json:"price_chars,omitempty"`
	Denomination string  `json:"denomination,omitempty"`
	ClaimSplit   float64 `json:"claim_split,omitempty"`
}

type CreateCategory struct {
	Name           string  `json:"name"`
	Wallet         string  `json:"wallet,omitempty"`
	Paid           bool    `json:"paid"`
	Lnurlp         bool    `json:"lnurlp"`
	Tips           bool    `json:"tips"`
	Chars          int     `json:"chars,omitempty"`
	PriceChars     float64 `json:"price_chars,omitempty"`
	Denomination   string  `json:"denomination,omitempty"`
	ClaimSplit     float64 `json:"claim_split,omitempty"`
	NotifyTelegram string  `json:"notify_telegram,omitempty"`
	NotifyNostr    string  `json:"notify_nostr,omitempty"`
	NotifyEmail    string  `json:"notify_email,omitempty"`
}

type CreateChat struct {
	ParticipantID   string `json:"participant_id,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
}

type CreateMessage struct {
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	SenderRole string `json:"sender_role"`
	Message    string `json:"message"`
}

type TipRequest struct {
	Amount     int64  `json:"amount"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
}

type ResolveRequest struct {
	Resolved bool `json:"resolved"`
}

// PaymentRequest is the response to a message or tip submission. Pending
// reports whether the effect is deferred behind the contained invoice.
type PaymentRequest struct {
	ChatID         string `json:"chat_id"`
	PaymentHash    string `json:"payment_hash,omitempty"`
	PaymentRequest string `json:"payment_request,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
	Pending        bool   `json:"pending"`
	MessageID      string `json:"message_id,omitempty"`
}

// ChatPayment records an issued invoice and the message it will unlock.
type ChatPayment struct {
	PaymentHash  string    `json:"payment_hash"`
	ChatID       string    `json:"chat_id"`
	CategoriesID string    `json:"categories_id"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderRole   string    `json:"sender_role"`
	Message      string    `json:"message"`
	Amount       int64     `json:"amount"`
	PaymentType  string    `json:"payment_type"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatPayment types.
const (
	PaymentTypeMessage = "message"
	PaymentTypeTip     = "tip"
	PaymentTypeBalance = "balance"
)
