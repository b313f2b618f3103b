package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// User is an authenticated account as reported by the external identity
// lookup. Anonymous viewers have none.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Identity is the sender identity a session speaks as. The participant id
// for an authenticated user is derived from the username so the same person
// resolves to the same sender across devices; anonymous viewers get a
// random token persisted per category.
type Identity struct {
	ParticipantID   string
	ParticipantName string
	User            *User
}

func (i Identity) Authenticated() bool { return i.User != nil }

// AuthProvider is the external identity lookup. CurrentUser returns nil
// without error when the viewer is not logged in.
type AuthProvider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

// IdentityStore persists the anonymous participant token per category.
type IdentityStore interface {
	Get(categoryID string) (string, bool, error)
	Put(categoryID, participantID string) error
}

// ResolveIdentity produces the session identity: the stored guest token is
// ensured first (so it survives login/logout cycles), then an authenticated
// username overrides it deterministically.
func ResolveIdentity(ctx context.Context, store IdentityStore, auth AuthProvider, categoryID string) (Identity, error) {
	id, ok, err := store.Get(categoryID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		id = "guest-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if err := store.Put(categoryID, id); err != nil {
			return Identity{}, fmt.Errorf("resolve identity: %w", err)
		}
	}

	ident := Identity{ParticipantID: id, ParticipantName: id}
	if auth == nil {
		return ident, nil
	}
	user, err := auth.CurrentUser(ctx)
	if err != nil || user == nil {
		// Not logged in; keep the anonymous identity.
		return ident, nil
	}
	ident.User = user
	if user.Username != "" {
		ident.ParticipantID = "user-" + user.Username
		ident.ParticipantName = user.Username
	} else {
		ident.ParticipantName = "anon"
	}
	return ident, nil
}

// MemStore is an in-memory IdentityStore, used by tests and throwaway
// sessions.
type MemStore struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{ids: make(map[string]string)}
}

func (s *MemStore) Get(categoryID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[categoryID]
	return id, ok, nil
}

func (s *MemStore) Put(categoryID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[categoryID] = participantID
	return nil
}

// FileStore persists tokens as a JSON object in a single file, the Go
// equivalent of the browser's per-category local storage entry.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(categoryID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.load()
	if err != nil {
		return "", false, err
	}
	id, ok := ids[categoryID]
	return id, ok, nil
}

func (s *FileStore) Put(categoryID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.load()
	if err != nil {
		return err
	}
	ids[categoryID] = participantID
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) load() (map[string]string, error) {
	ids := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
