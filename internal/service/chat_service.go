package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lnbits/chat/internal/invoices"
	"github.com/lnbits/chat/internal/repository"
	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

// MaxParticipants caps the roster per chat.
const MaxParticipants = 10

// ChatService implements the chat-side business rules: creating and joining
// chats, payment-gated message submission, tips, claims, resolution and
// settlement application. Every state change that other viewers must see is
// broadcast through the Broadcaster.
type ChatService struct {
	categories  repository.CategoryRepository
	chats       repository.ChatRepository
	payments    repository.PaymentRepository
	provider    invoices.Provider
	rates       invoices.RateConverter
	broadcaster Broadcaster
	sanitizer   *bluemonday.Policy
	baseURL     string
	log         *logger.Logger
}

func NewChatService(
	categories repository.CategoryRepository,
	chats repository.ChatRepository,
	payments repository.PaymentRepository,
	provider invoices.Provider,
	rates invoices.RateConverter,
	broadcaster Broadcaster,
	baseURL string,
	log *logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		categories:  categories,
		chats:       chats,
		payments:    payments,
		provider:    provider,
		rates:       rates,
		broadcaster: broadcaster,
		sanitizer:   bluemonday.StrictPolicy(),
		baseURL:     strings.TrimRight(baseURL, "/"),
		log:         log,
	}
}

func shortHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func cleanName(value, fallback string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// CreatePublicChat opens a fresh chat in the category with the caller as
// its first participant. The server assigns the chat id.
func (s *ChatService) CreatePublicChat(ctx context.Context, categoriesID string, data model.CreateChat) (model.Chat, error) {
	if _, err := s.categories.GetByID(ctx, categoriesID); err != nil {
		return model.Chat{}, fmt.Errorf("%w: invalid categories id", chaterrors.ErrRejected)
	}

	now := time.Now().UTC()
	participant := model.Participant{
		ID:       cleanName(data.ParticipantID, shortHash()),
		Name:     cleanName(data.ParticipantName, "anon"),
		Role:     model.RolePublic,
		JoinedAt: now,
	}
	chat := model.Chat{
		ID:           shortHash(),
		CategoriesID: categoriesID,
		Unread:       true,
		Participants: []model.Participant{participant},
		Messages:     []model.Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	chat.PublicURL = fmt.Sprintf("%s/chat/%s/%s", s.baseURL, categoriesID, chat.ID)

	if err := s.chats.Create(ctx, &chat); err != nil {
		return model.Chat{}, err
	}
	return chat, nil
}

func (s *ChatService) GetPublicChat(ctx context.Context, categoriesID, chatID string) (model.Chat, error) {
	return s.chats.GetForCategory(ctx, categoriesID, chatID)
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (model.Chat, error) {
	return s.chats.Get(ctx, chatID)
}

func (s *ChatService) ListChats(ctx context.Context, categoriesIDs []string) ([]model.Chat, error) {
	return s.chats.ListForCategories(ctx, categoriesIDs)
}

// SendPublicMessage submits a message from the public side. Depending on
// the category it is applied immediately (free, or sender authenticated),
// drawn down from the funded balance (lnurlp), or deferred behind a fresh
// invoice (pay-as-you-go). userID is non-empty for authenticated senders.
func (s *ChatService) SendPublicMessage(ctx context.Context, categoriesID, chatID string, data model.CreateMessage, userID string) (model.PaymentRequest, error) {
	category, err := s.categories.GetByID(ctx, categoriesID)
	if err != nil {
		return model.PaymentRequest{}, fmt.Errorf("%w: invalid categories id", chaterrors.ErrRejected)
	}
	chat, err := s.chats.GetForCategory(ctx, categoriesID, chatID)
	if err != nil {
		return model.PaymentRequest{}, err
	}

	text := s.sanitizer.Sanitize(strings.TrimSpace(data.Message))
	if text == "" {
		return model.PaymentRequest{}, fmt.Errorf("%w: empty message", chaterrors.ErrValidation)
	}
	if category.Chars > 0 && len(text) > category.Chars {
		return model.PaymentRequest{}, fmt.Errorf("%w: message too long", chaterrors.ErrValidation)
	}

	senderName := cleanName(data.SenderName, "anon")
	if err := ensureParticipant(&chat, data.SenderID, senderName, data.SenderRole); err != nil {
		return model.PaymentRequest{}, err
	}

	if userID != "" && chat.ClaimedByID != "" && chat.ClaimedByID != userID {
		claimedName := chat.ClaimedByName
		if claimedName == "" {
			claimedName = "another user"
		}
		return model.PaymentRequest{}, fmt.Errorf("%w: this chat has been claimed by %s", chaterrors.ErrRejected, claimedName)
	}

	var amount int64
	if category.Paid && userID == "" {
		amount, err = s.calculateAmount(ctx, category, text)
		if err != nil {
			return model.PaymentRequest{}, err
		}
	}

	data.SenderName = senderName
	data.Message = text

	if category.Paid && category.Lnurlp && amount > 0 && userID == "" {
		return s.drawdownBalance(ctx, category, chat, amount, data)
	}
	if category.Paid && amount > 0 && userID == "" {
		return s.createPendingPayment(ctx, category, chat, amount, data)
	}
	return s.sendFreeMessage(ctx, category, chat, data)
}

// SendAdminMessage appends a message from the claimer/admin side. Admin
// sends are never payment-gated.
func (s *ChatService) SendAdminMessage(ctx context.Context, chatID string, data model.CreateMessage) (model.Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	text := s.sanitizer.Sanitize(strings.TrimSpace(data.Message))
	if text == "" {
		return model.Message{}, fmt.Errorf("%w: empty message", chaterrors.ErrValidation)
	}
	senderName := cleanName(data.SenderName, "support")
	if err := ensureParticipant(&chat, data.SenderID, senderName, model.RoleAdmin); err != nil {
		return model.Message{}, err
	}
	message := model.Message{
		ID:         shortHash(),
		SenderID:   data.SenderID,
		SenderName: senderName,
		SenderRole: model.RoleAdmin,
		Message:    text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.appendMessage(ctx, &chat, message, false); err != nil {
		return model.Message{}, err
	}
	return message, nil
}

// RequestTip issues a tip invoice. Tips are always deferred behind payment.
func (s *ChatService) RequestTip(ctx context.Context, categoriesID, chatID string, data model.TipRequest) (model.PaymentRequest, error) {
	if data.Amount <= 0 {
		return model.PaymentRequest{}, fmt.Errorf("%w: tip amount must be positive", chaterrors.ErrValidation)
	}
	category, err := s.categories.GetByID(ctx, categoriesID)
	if err != nil {
		return model.PaymentRequest{}, fmt.Errorf("%w: invalid categories id", chaterrors.ErrRejected)
	}
	if _, err := s.chats.GetForCategory(ctx, categoriesID, chatID); err != nil {
		return model.PaymentRequest{}, err
	}
	wallet, err := s.categoryWallet(category)
	if err != nil {
		return model.PaymentRequest{}, err
	}

	senderName := cleanName(data.SenderName, "anon")
	invoice, err := s.provider.CreateInvoice(ctx, invoices.CreateRequest{
		Wallet: wallet,
		Amount: data.Amount,
		Memo:   fmt.Sprintf("Tip for %s", category.Name),
		Extra: map[string]string{
			"tag":           "chat",
			"chat_id":       chatID,
			"categories_id": categoriesID,
			"payment_type":  model.PaymentTypeTip,
		},
	})
	if err != nil {
		return model.PaymentRequest{}, err
	}

	payment := model.ChatPayment{
		PaymentHash:  invoice.PaymentHash,
		ChatID:       chatID,
		CategoriesID: categoriesID,
		SenderID:     data.SenderID,
		SenderName:   senderName,
		SenderRole:   model.RolePublic,
		Message:      fmt.Sprintf("Tip: %d sats", data.Amount),
		Amount:       data.Amount,
		PaymentType:  model.PaymentTypeTip,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return model.PaymentRequest{}, err
	}

	return model.PaymentRequest{
		ChatID:         chatID,
		PaymentHash:    invoice.PaymentHash,
		PaymentRequest: invoice.Bolt11,
		Amount:         data.Amount,
		Pending:        true,
	}, nil
}

// ToggleClaim claims the chat for userID, or releases it when userID
// already holds the claim.
func (s *ChatService) ToggleClaim(ctx context.Context, chatID, userID, username string) (model.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return model.Chat{}, err
	}
	if chat.ClaimedByID == userID {
		chat.ClaimedByID = ""
		chat.ClaimedByName = ""
	} else {
		chat.ClaimedByID = userID
		chat.ClaimedByName = cleanName(username, "user")
	}
	chat.UpdatedAt = time.Now().UTC()
	if err := s.chats.Update(ctx, chat); err != nil {
		return model.Chat{}, err
	}
	s.broadcastChat(ctx, chat.ID, model.NewClaimEvent(chat.ClaimedByID, chat.ClaimedByName))
	return chat, nil
}

func (s *ChatService) MarkResolved(ctx context.Context, chatID string, resolved bool) (model.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return model.Chat{}, err
	}
	chat.Resolved = resolved
	chat.UpdatedAt = time.Now().UTC()
	if err := s.chats.Update(ctx, chat); err != nil {
		return model.Chat{}, err
	}
	s.broadcastChat(ctx, chat.ID, model.NewResolvedEvent(resolved))
	return chat, nil
}

func (s *ChatService) MarkSeen(ctx context.Context, chatID string) (model.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return model.Chat{}, err
	}
	if chat.Unread {
		chat.Unread = false
		chat.UpdatedAt = time.Now().UTC()
		if err := s.chats.Update(ctx, chat); err != nil {
			return model.Chat{}, err
		}
		s.broadcastChat(ctx, chat.ID, model.NewSeenEvent())
	}
	return chat, nil
}

func (s *ChatService) sendFreeMessage(ctx context.Context, category model.Category, chat model.Chat, data model.CreateMessage) (model.PaymentRequest, error) {
	message := model.Message{
		ID:         shortHash(),
		SenderID:   data.SenderID,
		SenderName: data.SenderName,
		SenderRole: data.SenderRole,
		Message:    data.Message,
		CreatedAt:  time.Now().UTC(),
	}
	if len(chat.Messages) == 0 {
		s.notifyNewChat(category, chat, data.Message)
	}
	if err := s.appendMessage(ctx, &chat, message, true); err != nil {
		return model.PaymentRequest{}, err
	}
	return model.PaymentRequest{ChatID: chat.ID, MessageID: message.ID}, nil
}

// drawdownBalance funds the message from the chat's prepaid balance
// instead of issuing an invoice.
func (s *ChatService) drawdownBalance(ctx context.Context, category model.Category, chat model.Chat, amount int64, data model.CreateMessage) (model.PaymentRequest, error) {
	if chat.Balance < amount {
		return model.PaymentRequest{}, fmt.Errorf("%w: insufficient balance, fund the chat to continue", chaterrors.ErrRejected)
	}
	chat.Balance -= amount
	s.maybePayClaimSplit(ctx, category, chat, amount)

	message := model.Message{
		ID:          shortHash(),
		SenderID:    data.SenderID,
		SenderName:  data.SenderName,
		SenderRole:  data.SenderRole,
		Message:     data.Message,
		CreatedAt:   time.Now().UTC(),
		Amount:      amount,
		MessageType: model.MessageTypeMessage,
	}
	if len(chat.Messages) == 0 {
		s.notifyNewChat(category, chat, data.Message)
	}
	if err := s.appendMessage(ctx, &chat, message, true); err != nil {
		return model.PaymentRequest{}, err
	}
	s.broadcastBalance(ctx, chat.ID, chat.Balance)
	return model.PaymentRequest{ChatID: chat.ID, MessageID: message.ID}, nil
}

// createPendingPayment records the message behind a fresh invoice; the
// message is only appended when the settlement notification arrives.
func (s *ChatService) createPendingPayment(ctx context.Context, category model.Category, chat model.Chat, amount int64, data model.CreateMessage) (model.PaymentRequest, error) {
	wallet, err := s.categoryWallet(category)
	if err != nil {
		return model.PaymentRequest{}, err
	}
	invoice, err := s.provider.CreateInvoice(ctx, invoices.CreateRequest{
		Wallet: wallet,
		Amount: amount,
		Memo:   fmt.Sprintf("Chat message for %s", category.Name),
		Extra: map[string]string{
			"tag":           "chat",
			"chat_id":       chat.ID,
			"categories_id": chat.CategoriesID,
			"payment_type":  model.PaymentTypeMessage,
		},
	})
	if err != nil {
		return model.PaymentRequest{}, err
	}

	payment := model.ChatPayment{
		PaymentHash:  invoice.PaymentHash,
		ChatID:       chat.ID,
		CategoriesID: chat.CategoriesID,
		SenderID:     data.SenderID,
		SenderName:   data.SenderName,
		SenderRole:   data.SenderRole,
		Message:      data.Message,
		Amount:       amount,
		PaymentType:  model.PaymentTypeMessage,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return model.PaymentRequest{}, err
	}

	return model.PaymentRequest{
		ChatID:         chat.ID,
		PaymentHash:    invoice.PaymentHash,
		PaymentRequest: invoice.Bolt11,
		Amount:         amount,
		Pending:        true,
	}, nil
}

// appendMessage persists the message on the chat aggregate and broadcasts
// it. The broadcast and the direct response are the two delivery paths
// clients merge idempotently. The whole aggregate is written back, so two
// concurrent writers to the same chat race and the last writer wins.
func (s *ChatService) appendMessage(ctx context.Context, chat *model.Chat, message model.Message, unread bool) error {
	chat.Messages = append(chat.Messages, message)
	createdAt := message.CreatedAt
	chat.LastMessageAt = &createdAt
	chat.Unread = unread
	chat.UpdatedAt = time.Now().UTC()
	if err := s.chats.Update(ctx, *chat); err != nil {
		return err
	}
	s.broadcastChat(ctx, chat.ID, model.NewMessageEvent(message))
	return nil
}

// calculateAmount prices a message at price_chars per character, converted
// to sats when the category is denominated in fiat.
func (s *ChatService) calculateAmount(ctx context.Context, category model.Category, message string) (int64, error) {
	if category.PriceChars <= 0 {
		return 0, nil
	}
	raw := float64(len(message)) * category.PriceChars
	if raw <= 0 {
		return 0, nil
	}
	if category.Denomination != "" && category.Denomination != "sat" {
		if s.rates == nil {
			return 0, fmt.Errorf("%w: no rate converter for %s", chaterrors.ErrRejected, category.Denomination)
		}
		return s.rates.FiatAsSats(ctx, raw, category.Denomination)
	}
	return int64(math.Ceil(raw)), nil
}

func (s *ChatService) categoryWallet(category model.Category) (string, error) {
	if category.Wallet == "" {
		return "", fmt.Errorf("%w: category wallet not configured", chaterrors.ErrRejected)
	}
	return category.Wallet, nil
}

// maybePayClaimSplit forwards the claimer's share of a settled amount.
// Best effort: a failed split never blocks the message.
func (s *ChatService) maybePayClaimSplit(ctx context.Context, category model.Category, chat model.Chat, amount int64) {
	if chat.ClaimedByID == "" {
		return
	}
	split := math.Max(0, math.Min(category.ClaimSplit, maxClaimSplit))
	splitAmount := int64(math.Floor(float64(amount) * split / 100))
	if splitAmount <= 0 {
		return
	}
	wallet, err := s.categoryWallet(category)
	if err != nil {
		return
	}
	memo := fmt.Sprintf("Chat claim split for %s", category.Name)
	if err := s.provider.SplitPayment(ctx, wallet, chat.ClaimedByID, splitAmount, memo); err != nil {
		s.log.Warnf("chat %s: claim split payment failed: %v", chat.ID, err)
	}
}

// notifyNewChat stands in for the upstream telegram/nostr/email fanout;
// notification delivery is outside this service.
func (s *ChatService) notifyNewChat(category model.Category, chat model.Chat, firstMessage string) {
	if category.NotifyTelegram == "" && category.NotifyNostr == "" && category.NotifyEmail == "" {
		return
	}
	s.log.Infof("category %s: new chat %s: %q", category.ID, chat.ID, firstMessage)
}

// ensureParticipant registers the sender on the chat aggregate the first
// time it posts. Dedupe is by id, then by normalized name so a renamed
// guest does not occupy a second seat.
func ensureParticipant(chat *model.Chat, senderID, senderName, senderRole string) error {
	normalized := strings.ToLower(strings.TrimSpace(senderName))
	for _, p := range chat.Participants {
		if p.ID == senderID {
			return nil
		}
		if normalized != "" && strings.ToLower(strings.TrimSpace(p.Name)) == normalized {
			return nil
		}
	}
	if len(chat.Participants) >= MaxParticipants {
		return chaterrors.ErrChatFull
	}
	chat.Participants = append(chat.Participants, model.Participant{
		ID:       senderID,
		Name:     senderName,
		Role:     senderRole,
		JoinedAt: time.Now().UTC(),
	})
	return nil
}
