package model

import "time"

// Sender roles.
const (
	RolePublic = "public"
	RoleAdmin  = "admin"
)

// Message kinds.
const (
	MessageTypeMessage = "message"
	MessageTypeTip     = "tip"
)

// Message is a single chat entry. Immutable once created.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderRole  string    `json:"sender_role"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	Amount      int64     `json:"amount,omitempty"`
	MessageType string    `json:"message_type,omitempty"`
}

// MessageLog is the ordered, deduplicated message collection for one chat.
// Entries keep arrival order; merging never reorders or deletes. The log is
// not safe for concurrent use, callers serialize access.
type MessageLog struct {
	seen  map[string]struct{}
	items []Message
}

func NewMessageLog(initial []Message) *MessageLog {
	l := &MessageLog{seen: make(map[string]struct{}, len(initial))}
	for _, m := range initial {
		l.Merge(m)
	}
	return l
}

// Merge applies a message at most once. It reports whether the message was
// appended; a message whose id is already present is a no-op.
func (l *MessageLog) Merge(m Message) bool {
	if _, ok := l.seen[m.ID]; ok {
		return false
	}
	l.seen[m.ID] = struct{}{}
	l.items = append(l.items, m)
	return true
}

// Snapshot returns a copy of the log in append order.
func (l *MessageLog) Snapshot() []Message {
	out := make([]Message, len(l.items))
	copy(out, l.items)
	return out
}

func (l *MessageLog) Len() int {
	return len(l.items)
}
