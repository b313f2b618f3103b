package model

import (
	"encoding/json"
	"fmt"
)

// Topic builders for live subscriptions. Payment-hash topics are the bare
// hash.
func TopicChat(chatID string) string    { return "chat:" + chatID }
func TopicBalance(chatID string) string { return "chatbalance:" + chatID }

// Live event types carried on the chat and balance topics.
const (
	EventMessage  = "message"
	EventResolved = "resolved"
	EventBalance  = "balance"
	EventClaim    = "claim"
	EventSeen     = "seen"
)

// Event is the envelope broadcast on chat topics. It is a closed tagged
// variant: consumers switch on Type and ignore tags they do not recognize.
// Fields other than the one selected by Type are zero.
type Event struct {
	Type          string   `json:"type"`
	Message       *Message `json:"message,omitempty"`
	Resolved      *bool    `json:"resolved,omitempty"`
	Balance       *int64   `json:"balance,omitempty"`
	ClaimedByID   *string  `json:"claimed_by_id,omitempty"`
	ClaimedByName *string  `json:"claimed_by_name,omitempty"`
}

// DecodeEvent parses a live-event payload. A payload that is not valid JSON
// or carries no type tag is malformed; an unrecognized type is not an error.
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type tag")
	}
	return ev, nil
}

func NewMessageEvent(m Message) Event {
	return Event{Type: EventMessage, Message: &m}
}

func NewResolvedEvent(resolved bool) Event {
	return Event{Type: EventResolved, Resolved: &resolved}
}

func NewBalanceEvent(balance int64) Event {
	return Event{Type: EventBalance, Balance: &balance}
}

func NewClaimEvent(claimedByID, claimedByName string) Event {
	return Event{Type: EventClaim, ClaimedByID: &claimedByID, ClaimedByName: &claimedByName}
}

func NewSeenEvent() Event {
	return Event{Type: EventSeen}
}

// Settlement is the single notification delivered on a payment-hash topic.
// Pending flips to false exactly when the invoice is settled.
type Settlement struct {
	PaymentHash string `json:"payment_hash,omitempty"`
	Pending     bool   `json:"pending"`
	Amount      int64  `json:"amount,omitempty"`
}

func DecodeSettlement(raw []byte) (Settlement, error) {
	var aux struct {
		PaymentHash string `json:"payment_hash"`
		Pending     *bool  `json:"pending"`
		Amount      int64  `json:"amount"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return Settlement{}, fmt.Errorf("decode settlement: %w", err)
	}
	if aux.Pending == nil {
		return Settlement{}, fmt.Errorf("decode settlement: missing pending flag")
	}
	return Settlement{PaymentHash: aux.PaymentHash, Pending: *aux.Pending, Amount: aux.Amount}, nil
}
