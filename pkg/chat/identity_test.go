package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

type staticAuth struct {
	user *User
}

func (a staticAuth) CurrentUser(ctx context.Context) (*User, error) {
	return a.user, nil
}

func TestResolveIdentityAnonymous(t *testing.T) {
	store := NewMemStore()
	ident, err := ResolveIdentity(context.Background(), store, nil, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ident.ParticipantID, "guest-") {
		t.Fatalf("want guest token, got %q", ident.ParticipantID)
	}
	if len(ident.ParticipantID) != len("guest-")+8 {
		t.Fatalf("want 8 char suffix, got %q", ident.ParticipantID)
	}
	if ident.Authenticated() {
		t.Fatal("anonymous identity must not be authenticated")
	}

	again, err := ResolveIdentity(context.Background(), store, nil, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if again.ParticipantID != ident.ParticipantID {
		t.Fatalf("token must be stable per category: %q vs %q", again.ParticipantID, ident.ParticipantID)
	}

	other, err := ResolveIdentity(context.Background(), store, nil, "cat2")
	if err != nil {
		t.Fatal(err)
	}
	if other.ParticipantID == ident.ParticipantID {
		t.Fatal("different categories must get different tokens")
	}
}

func TestResolveIdentityAuthenticated(t *testing.T) {
	store := NewMemStore()
	auth := staticAuth{user: &User{ID: "u1", Username: "alice"}}

	ident, err := ResolveIdentity(context.Background(), store, auth, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if ident.ParticipantID != "user-alice" || ident.ParticipantName != "alice" {
		t.Fatalf("deterministic identity expected, got %+v", ident)
	}
	if !ident.Authenticated() {
		t.Fatal("want authenticated")
	}

	// The guest token is still reserved underneath and survives logout.
	anon, err := ResolveIdentity(context.Background(), store, staticAuth{}, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(anon.ParticipantID, "guest-") {
		t.Fatalf("want guest token after logout, got %q", anon.ParticipantID)
	}
}

func TestResolveIdentityUserWithoutUsername(t *testing.T) {
	ident, err := ResolveIdentity(context.Background(), NewMemStore(), staticAuth{user: &User{ID: "u1"}}, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if !ident.Authenticated() {
		t.Fatal("want authenticated")
	}
	if ident.ParticipantName != "anon" {
		t.Fatalf("want anon display name, got %q", ident.ParticipantName)
	}
	if !strings.HasPrefix(ident.ParticipantID, "guest-") {
		t.Fatalf("no username means the guest token stays, got %q", ident.ParticipantID)
	}
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	first, err := ResolveIdentity(context.Background(), NewFileStore(path), nil, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ResolveIdentity(context.Background(), NewFileStore(path), nil, "cat1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ParticipantID != second.ParticipantID {
		t.Fatalf("token must survive process restarts: %q vs %q", first.ParticipantID, second.ParticipantID)
	}
}
