package persist

import (
	"context"
	"sync"

	"github.com/chatframe/sessiond/internal/model"
)

// memoryStore implements Store with an in-memory copy. Used in tests and as
// the no-durability driver.
type memoryStore struct {
	mu            sync.RWMutex
	summaries     []model.ConversationSummary
	lastSessionID string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

// LoadSummaries implements Store.
func (s *memoryStore) LoadSummaries(ctx context.Context) ([]model.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ConversationSummary, len(s.summaries))
	copy(out, s.summaries)
	return out, nil
}

// SaveSummaries implements Store.
func (s *memoryStore) SaveSummaries(ctx context.Context, summaries []model.ConversationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = make([]model.ConversationSummary, len(summaries))
	copy(s.summaries, summaries)
	return nil
}

// LastSessionID implements Store.
func (s *memoryStore) LastSessionID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSessionID, nil
}

// SetLastSessionID implements Store.
func (s *memoryStore) SetLastSessionID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSessionID = id
	return nil
}

// Close implements Store.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = nil
	s.lastSessionID = ""
	return nil
}
