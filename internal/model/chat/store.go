package chat

import (
	"context"
	"sync"
	"time"
)

// Store persists conversation turns keyed by session.
type Store interface {
	// InitSchema prepares the storage medium. It is safe to call on every startup.
	InitSchema(ctx context.Context) error
	// InsertTurn appends a turn and returns the identifier assigned to it.
	InsertTurn(ctx context.Context, sessionID string, sender Sender, text string) (uint64, error)
	// ListTurns returns the session's turns ordered by identifier, oldest first.
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}

// MemoryStore implements Store in process memory. Turns do not survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint64
	turns  map[string][]Turn
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns: make(map[string][]Turn),
		now:   time.Now,
	}
}

// InitSchema is a no-op for the in-memory store.
func (s *MemoryStore) InitSchema(_ context.Context) error {
	return nil
}

// InsertTurn appends a turn to the session history.
func (s *MemoryStore) InsertTurn(_ context.Context, sessionID string, sender Sender, text string) (uint64, error) {
	if err := ValidateTurn(sessionID, sender, text); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	turn := Turn{
		ID:        s.nextID,
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return turn.ID, nil
}

// ListTurns returns a copy of the stored turns for the session.
func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
