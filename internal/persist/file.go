package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/chatframe/sessiond/internal/model"
)

// fileState is the on-disk document, the durable equivalent of the widget's
// two local-storage keys.
type fileState struct {
	Conversations []model.ConversationSummary `json:"conversations"`
	LastSessionID string                      `json:"last_session_id,omitempty"`
}

// fileStore implements Store on a single JSON file. Writes replace the whole
// document via a temp file and rename. An unreadable or unparsable file is
// treated as empty, never as an error.
type fileStore struct {
	mu   sync.Mutex
	path string
}

func newFileStore(path string) *fileStore {
	return &fileStore{path: path}
}

func (s *fileStore) read() fileState {
	var state fileState

	data, err := os.ReadFile(s.path)
	if err != nil {
		return state
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{}
	}
	return state
}

func (s *fileStore) write(state fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".chat-sessions-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// LoadSummaries implements Store.
func (s *fileStore) LoadSummaries(ctx context.Context) ([]model.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.read()
	if state.Conversations == nil {
		return []model.ConversationSummary{}, nil
	}
	return state.Conversations, nil
}

// SaveSummaries implements Store.
func (s *fileStore) SaveSummaries(ctx context.Context, summaries []model.ConversationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.read()
	state.Conversations = summaries
	return s.write(state)
}

// LastSessionID implements Store.
func (s *fileStore) LastSessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read().LastSessionID, nil
}

// SetLastSessionID implements Store.
func (s *fileStore) SetLastSessionID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.read()
	state.LastSessionID = id
	return s.write(state)
}

// Close implements Store.
func (s *fileStore) Close() error {
	return nil
}
