package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestCategoryRoundTrip(t *testing.T) {
	repo := NewCategoryRepository(testDB(t))
	ctx := context.Background()

	category := model.Category{
		ID: "cat1", UserID: "u1", Name: "support", Wallet: "w1",
		Paid: true, Lnurlp: true, Tips: true,
		Chars: 200, PriceChars: 1.5, Denomination: "EUR", ClaimSplit: 30,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, &category); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &category); !errors.Is(err, chaterrors.ErrAlreadyExists) {
		t.Fatalf("duplicate id: want already exists, got %v", err)
	}

	got, err := repo.GetByID(ctx, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "support" || got.PriceChars != 1.5 || !got.Lnurlp {
		t.Fatalf("round trip lost fields: %+v", got)
	}

	if _, err := repo.Get(ctx, "other-user", "cat1"); !errors.Is(err, chaterrors.ErrNotFound) {
		t.Fatalf("ownership scope: want not found, got %v", err)
	}
	if _, err := repo.Get(ctx, "u1", "cat1"); err != nil {
		t.Fatal(err)
	}
}

func TestChatRoundTripKeepsAggregate(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	chat := model.Chat{
		ID: "c1", CategoriesID: "cat1", Unread: true, Balance: 21,
		ClaimedByID: "u2", ClaimedByName: "bob",
		Participants: []model.Participant{{ID: "p1", Name: "guest", Role: model.RolePublic, JoinedAt: now}},
		Messages: []model.Message{
			{ID: "m1", SenderID: "p1", SenderName: "guest", SenderRole: model.RolePublic, Message: "hi", CreatedAt: now},
			{ID: "m2", SenderID: "p1", SenderName: "guest", SenderRole: model.RolePublic, Message: "tip", Amount: 5, MessageType: model.MessageTypeTip, CreatedAt: now},
		},
		LastMessageAt: &now,
		CreatedAt:     now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, &chat); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Amount != 5 || got.Messages[1].MessageType != model.MessageTypeTip {
		t.Fatalf("messages lost in round trip: %+v", got.Messages)
	}
	if len(got.Participants) != 1 || got.Participants[0].Name != "guest" {
		t.Fatalf("participants lost in round trip: %+v", got.Participants)
	}
	if got.Balance != 21 || got.ClaimedByID != "u2" {
		t.Fatalf("scalar fields lost: %+v", got)
	}

	if _, err := repo.GetForCategory(ctx, "wrong-cat", "c1"); !errors.Is(err, chaterrors.ErrNotFound) {
		t.Fatalf("category scope: want not found, got %v", err)
	}

	got.Messages = append(got.Messages, model.Message{ID: "m3", Message: "more"})
	if err := repo.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.Get(ctx, "c1")
	if len(again.Messages) != 3 {
		t.Fatalf("update lost messages: %d", len(again.Messages))
	}
}

func TestListForCategories(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	for i, cat := range []string{"cat1", "cat1", "cat2", "cat3"} {
		chat := model.Chat{
			ID:           string(rune('a' + i)),
			CategoriesID: cat,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := repo.Create(ctx, &chat); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := repo.ListForCategories(ctx, []string{"cat1", "cat2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 3 {
		t.Fatalf("want 3 chats, got %d", len(chats))
	}

	chats, err = repo.ListForCategories(ctx, nil)
	if err != nil || chats != nil {
		t.Fatalf("empty scope must list nothing, got %v, %v", chats, err)
	}
}

func TestDeleteEmptyBefore(t *testing.T) {
	repo := NewChatRepository(testDB(t))
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	stale := model.Chat{ID: "stale", CategoriesID: "cat1", CreatedAt: old, UpdatedAt: old}
	fresh := model.Chat{ID: "fresh", CategoriesID: "cat1", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	active := model.Chat{
		ID: "active", CategoriesID: "cat1", CreatedAt: old, UpdatedAt: old,
		Messages: []model.Message{{ID: "m1", Message: "kept"}},
	}
	for _, c := range []*model.Chat{&stale, &fresh, &active} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.DeleteEmptyBefore(ctx, time.Now().UTC().Add(-20*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Get(ctx, "stale"); !errors.Is(err, chaterrors.ErrNotFound) {
		t.Fatal("stale empty chat must be swept")
	}
	if _, err := repo.Get(ctx, "fresh"); err != nil {
		t.Fatal("fresh empty chat must survive")
	}
	if _, err := repo.Get(ctx, "active"); err != nil {
		t.Fatal("chat with messages must survive")
	}
}

func TestPaymentRoundTrip(t *testing.T) {
	repo := NewPaymentRepository(testDB(t))
	ctx := context.Background()

	payment := model.ChatPayment{
		PaymentHash: "h1", ChatID: "c1", CategoriesID: "cat1",
		SenderID: "p1", SenderName: "guest", SenderRole: model.RolePublic,
		Message: "deferred", Amount: 10, PaymentType: model.PaymentTypeMessage,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, &payment); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &payment); !errors.Is(err, chaterrors.ErrAlreadyExists) {
		t.Fatalf("duplicate hash: want already exists, got %v", err)
	}

	got, err := repo.Get(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Paid {
		t.Fatal("fresh payment must be unpaid")
	}

	got.Paid = true
	if err := repo.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.Get(ctx, "h1")
	if !again.Paid {
		t.Fatal("paid flag did not persist")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, chaterrors.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
