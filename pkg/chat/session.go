// Package chat is the viewer-side core of the payment-gated live chat: a
// Session owns one chat's local state (messages, roster, resolved flag,
// claim owner, balance), keeps it converged through live feeds, and routes
// outbound intents through the payment-gated send workflow.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/feed"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateJoining
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateJoining:
		return "joining"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one viewer's live view of one chat. All event application is
// serialized onto a single goroutine, so merges never race; accessors take
// read locks and return copies. Two sessions for the same chat share no
// memory and converge only through the broadcast stream.
type Session struct {
	api  *Client
	ids  IdentityStore
	auth AuthProvider
	log  *logger.Logger

	mu            sync.RWMutex
	state         State
	identity      Identity
	categoriesID  string
	category      model.PublicCategory
	chatID        string
	resolved      bool
	claimedByID   string
	claimedByName string
	balance       int64
	msgs          *model.MessageLog
	roster        *model.Roster
	sendInFlight  bool
	tipInFlight   bool
	pendings      []*PendingPayment

	chatFeed    *feed.Channel
	balanceFeed *feed.Channel
	events      chan model.Event
	quit        chan struct{}
	loopDone    chan struct{}
}

type SessionOption func(*Session)

// WithAuth supplies the external identity lookup; without it the session
// always resolves an anonymous identity.
func WithAuth(auth AuthProvider) SessionOption {
	return func(s *Session) { s.auth = auth }
}

func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func NewSession(api *Client, store IdentityStore, opts ...SessionOption) *Session {
	s := &Session{
		api:    api,
		ids:    store,
		log:    logger.Nop(),
		events: make(chan model.Event, 64),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the session through Resolving and Joining into Live. An empty
// chatID creates a fresh chat with the resolved identity as the first
// participant; otherwise the existing chat is resumed. On failure the
// session returns to Uninitialized and prior state is untouched.
func (s *Session) Start(ctx context.Context, categoriesID, chatID string) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", s.state)
	}
	s.state = StateResolving
	s.categoriesID = categoriesID
	s.mu.Unlock()

	if err := s.join(ctx, categoriesID, chatID); err != nil {
		s.mu.Lock()
		s.state = StateUninitialized
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateLive
	s.loopDone = make(chan struct{})
	s.mu.Unlock()
	go s.loop()
	return nil
}

func (s *Session) join(ctx context.Context, categoriesID, chatID string) error {
	ident, err := ResolveIdentity(ctx, s.ids, s.auth, categoriesID)
	if err != nil {
		return err
	}

	category, err := s.api.PublicCategory(ctx, categoriesID)
	if err != nil {
		return fmt.Errorf("fetch category: %w", err)
	}

	s.mu.Lock()
	s.identity = ident
	s.category = category
	s.state = StateJoining
	s.mu.Unlock()

	var snapshot model.Chat
	if chatID == "" {
		snapshot, err = s.api.CreateChat(ctx, categoriesID, model.CreateChat{
			ParticipantID:   ident.ParticipantID,
			ParticipantName: ident.ParticipantName,
		})
	} else {
		snapshot, err = s.api.GetChat(ctx, categoriesID, chatID)
	}
	if err != nil {
		return fmt.Errorf("join chat: %w", err)
	}

	chatFeed, err := feed.New(s.api.BaseURL(), model.TopicChat(snapshot.ID), s.log)
	if err != nil {
		return err
	}
	balanceFeed, err := feed.New(s.api.BaseURL(), model.TopicBalance(snapshot.ID), s.log)
	if err != nil {
		return err
	}
	if err := chatFeed.Open(ctx, s.handleFrame); err != nil {
		return err
	}
	if err := balanceFeed.Open(ctx, s.handleFrame); err != nil {
		chatFeed.Close()
		return err
	}

	s.mu.Lock()
	s.chatID = snapshot.ID
	s.msgs = model.NewMessageLog(snapshot.Messages)
	s.roster = model.NewRoster(snapshot.Participants)
	s.resolved = snapshot.Resolved
	s.claimedByID = snapshot.ClaimedByID
	s.claimedByName = snapshot.ClaimedByName
	s.balance = snapshot.Balance
	s.chatFeed = chatFeed
	s.balanceFeed = balanceFeed
	s.mu.Unlock()
	return nil
}

// handleFrame runs on feed goroutines; it only decodes and enqueues so that
// a single loop goroutine applies every event.
func (s *Session) handleFrame(raw []byte) error {
	ev, err := model.DecodeEvent(raw)
	if err != nil {
		return err
	}
	select {
	case s.events <- ev:
	case <-s.quit:
	}
	return nil
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

// apply merges one inbound event. Every branch is idempotent, so duplicate
// and out-of-order delivery converge to the same state.
func (s *Session) apply(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case model.EventMessage:
		if ev.Message == nil {
			return
		}
		if s.msgs.Merge(*ev.Message) {
			s.roster.Observe(model.Participant{
				ID:   ev.Message.SenderID,
				Name: ev.Message.SenderName,
				Role: ev.Message.SenderRole,
			})
		}
	case model.EventResolved:
		if ev.Resolved != nil {
			s.resolved = *ev.Resolved
		}
	case model.EventBalance:
		if ev.Balance != nil {
			s.balance = *ev.Balance
		}
	case model.EventClaim:
		s.claimedByID = strDeref(ev.ClaimedByID)
		s.claimedByName = strDeref(ev.ClaimedByName)
	default:
		// Unknown tags (and "seen") are a no-op, not an error.
	}
}

// Close tears the session down: all open feed handles are released, pending
// payment waits are abandoned locally, and no operation is valid afterward.
// Safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	close(s.quit)
	if s.chatFeed != nil {
		s.chatFeed.Close()
	}
	if s.balanceFeed != nil {
		s.balanceFeed.Close()
	}
	pendings := s.pendings
	s.pendings = nil
	loopDone := s.loopDone
	s.mu.Unlock()

	for _, p := range pendings {
		p.Cancel()
	}
	if loopDone != nil {
		<-loopDone
	}
}

// SendResult reports how a submission landed: an immediate message id, or a
// pending payment to settle first.
type SendResult struct {
	MessageID string
	Pending   *PendingPayment
}

// Send submits a public message. A paid category answers with a pending
// invoice; settlement is then awaited on a dedicated payment-hash feed. At
// most one message send may be in flight per session.
func (s *Session) Send(ctx context.Context, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", chaterrors.ErrValidation)
	}

	ident, categoriesID, chatID, err := s.beginSubmit(&s.sendInFlight)
	if err != nil {
		return nil, err
	}
	defer s.endSubmit(&s.sendInFlight)

	resp, err := s.api.SendMessage(ctx, categoriesID, chatID, model.CreateMessage{
		SenderID:   ident.ParticipantID,
		SenderName: ident.ParticipantName,
		SenderRole: model.RolePublic,
		Message:    text,
	})
	if err != nil {
		return nil, err
	}
	return s.finishSubmit(ctx, resp, PurposeMessage)
}

// Tip submits a tip; tips are always invoice-backed. At most one tip may be
// in flight per session, independent of message sends.
func (s *Session) Tip(ctx context.Context, amount int64) (*SendResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: tip amount must be positive", chaterrors.ErrValidation)
	}

	ident, categoriesID, chatID, err := s.beginSubmit(&s.tipInFlight)
	if err != nil {
		return nil, err
	}
	defer s.endSubmit(&s.tipInFlight)

	resp, err := s.api.SendTip(ctx, categoriesID, chatID, model.TipRequest{
		Amount:     amount,
		SenderID:   ident.ParticipantID,
		SenderName: ident.ParticipantName,
	})
	if err != nil {
		return nil, err
	}
	return s.finishSubmit(ctx, resp, PurposeTip)
}

func (s *Session) beginSubmit(inFlight *bool) (Identity, string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLive(); err != nil {
		return Identity{}, "", "", err
	}
	if *inFlight {
		return Identity{}, "", "", chaterrors.ErrBusy
	}
	*inFlight = true
	return s.identity, s.categoriesID, s.chatID, nil
}

func (s *Session) endSubmit(inFlight *bool) {
	s.mu.Lock()
	*inFlight = false
	s.mu.Unlock()
}

func (s *Session) finishSubmit(ctx context.Context, resp model.PaymentRequest, purpose Purpose) (*SendResult, error) {
	if !resp.Pending || resp.PaymentHash == "" {
		// Applied immediately. The message event still arrives on the chat
		// feed and merges as a no-op duplicate.
		return &SendResult{MessageID: resp.MessageID}, nil
	}

	p := newPendingPayment(resp, purpose)
	s.mu.Lock()
	s.pendings = append(s.pendings, p)
	s.mu.Unlock()

	if err := openSettlementFeed(ctx, s.api.BaseURL(), p, s.log); err != nil {
		// The invoice is still valid; hand it back along with the error so
		// the viewer can pay even though the notifier failed.
		s.log.Warnf("chat %s: %v", resp.ChatID, err)
		return &SendResult{Pending: p}, err
	}
	return &SendResult{Pending: p}, nil
}

// Claim toggles chat ownership for an authenticated viewer. The server's
// returned snapshot is applied canonically; other viewers learn of the
// claim through the broadcast event.
func (s *Session) Claim(ctx context.Context) error {
	s.mu.RLock()
	err := s.requireLive()
	authed := s.identity.Authenticated()
	categoriesID, chatID := s.categoriesID, s.chatID
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if !authed {
		return fmt.Errorf("%w: claim needs a logged-in user", chaterrors.ErrAuthRequired)
	}

	snapshot, err := s.api.ToggleClaim(ctx, categoriesID, chatID)
	if err != nil {
		return err
	}
	s.applySnapshot(snapshot)
	return nil
}

// ToggleResolved flips the resolved flag. Any viewer may close or reopen
// the conversation they are part of.
func (s *Session) ToggleResolved(ctx context.Context) error {
	s.mu.RLock()
	err := s.requireLive()
	categoriesID, chatID, resolved := s.categoriesID, s.chatID, s.resolved
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	snapshot, err := s.api.Resolve(ctx, categoriesID, chatID, !resolved)
	if err != nil {
		return err
	}
	s.applySnapshot(snapshot)
	return nil
}

// applySnapshot merges a canonical server snapshot, the response of a
// state-mutating request. Merge rules match the event path so the two
// delivery paths never double-apply.
func (s *Session) applySnapshot(c model.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLive {
		return
	}
	for _, m := range c.Messages {
		s.msgs.Merge(m)
	}
	for _, p := range c.Participants {
		s.roster.Observe(p)
	}
	s.resolved = c.Resolved
	s.claimedByID = c.ClaimedByID
	s.claimedByName = c.ClaimedByName
	s.balance = c.Balance
}

func (s *Session) requireLive() error {
	switch s.state {
	case StateLive:
		return nil
	case StateClosed:
		return chaterrors.ErrClosed
	default:
		return fmt.Errorf("session not live (state %s)", s.state)
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) ChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID
}

func (s *Session) Category() model.PublicCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

func (s *Session) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.msgs == nil {
		return nil
	}
	return s.msgs.Snapshot()
}

func (s *Session) Participants() []model.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roster == nil {
		return nil
	}
	return s.roster.Snapshot()
}

func (s *Session) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

func (s *Session) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

func (s *Session) ClaimedBy() (id, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimedByID, s.claimedByName
}

func strDeref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
