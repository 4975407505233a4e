// Package store implements the chat session store: per-session message
// history, the active/current session pointers, and the conversation registry
// derived from session activity.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatframe/sessiond/internal/backend"
	"github.com/chatframe/sessiond/internal/events"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/persist"
	"github.com/chatframe/sessiond/pkg/logger"
	"github.com/chatframe/sessiond/pkg/metrics"
)

// humanMessageMarker flags history records authored by the end user.
const humanMessageMarker = "HumanMessage"

// fallbackReplyText replaces a backend reply that cannot be rendered as text.
// A formatting failure must never produce a blank message.
const fallbackReplyText = "[unreadable backend response]"

// Options configures session store behavior.
type Options struct {
	// InitialMessages seed every new session as bot messages.
	InitialMessages []string

	// ResumePreviousSession enables LoadPreviousSession. When false the
	// operation is a no-op.
	ResumePreviousSession bool
}

// SessionStore owns all in-memory session state. Message lists are owned
// exclusively by the store; the conversation registry holds derived summaries
// only and is never the source of truth for message content.
//
// Operations are serialized per store via the mutex, but the mutex is never
// held across a backend call. The waiting flag is store-global: concurrent
// sends across sessions are not supported by its design.
type SessionStore struct {
	backend  backend.Client
	persist  persist.Store
	notifier events.Notifier
	logger   *logger.Logger
	opts     Options

	mu               sync.Mutex
	messages         map[string][]model.Message
	summaries        []model.ConversationSummary // sorted by LastUpdated descending
	currentSessionID string
	activeSessionID  string
	waiting          bool
}

// New creates a session store. The notifier may be nil when no one listens
// for store events.
func New(bc backend.Client, ps persist.Store, notifier events.Notifier, log *logger.Logger, opts Options) *SessionStore {
	if notifier == nil {
		notifier = events.Multi()
	}

	return &SessionStore{
		backend:  bc,
		persist:  ps,
		notifier: notifier,
		logger:   log,
		opts:     opts,
		messages: make(map[string][]model.Message),
	}
}

func newMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (s *SessionStore) notify(ctx context.Context, event events.Event) {
	event.Timestamp = time.Now()
	s.notifier.Publish(ctx, event)
}

// StartNewSession generates a fresh session id, makes it both active and
// current, seeds its history with the configured initial bot messages and
// records it as the last session. No network call is made.
func (s *SessionStore) StartNewSession(ctx context.Context) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now()

	seed := make([]model.Message, 0, len(s.opts.InitialMessages))
	for _, text := range s.opts.InitialMessages {
		seed = append(seed, model.Message{
			ID:        newMessageID(),
			SessionID: id,
			Sender:    model.SenderBot,
			Text:      text,
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	s.messages[id] = seed
	s.activeSessionID = id
	s.currentSessionID = id
	s.mu.Unlock()

	// Losing the last-session pointer only degrades resume; the new session
	// itself is fine.
	if err := s.persist.SetLastSessionID(ctx, id); err != nil {
		s.logger.Warn("failed to persist last session id", zap.Error(err))
	}

	metrics.SessionsStartedTotal.Inc()
	s.notify(ctx, events.Event{Type: events.TypeSessionStarted, SessionID: id})

	s.logger.WithSession(id).Info("session started", zap.Int("seed_messages", len(seed)))
	return id, nil
}

// SwitchSession makes id both active and current. When the session's history
// is not in memory it is fetched from the backend; the returned bool reports
// whether a fetch happened, letting callers tell fresh loads from cache hits.
func (s *SessionStore) SwitchSession(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	s.activeSessionID = id
	s.currentSessionID = id
	_, cached := s.messages[id]
	s.mu.Unlock()

	s.notify(ctx, events.Event{Type: events.TypeSessionSwitched, SessionID: id})

	if cached {
		metrics.SessionSwitchesTotal.WithLabelValues("cached").Inc()
		return false, nil
	}

	records, err := s.backend.LoadSession(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load session history: %w", err)
	}

	now := time.Now()
	msgs := make([]model.Message, 0, len(records))
	for _, rec := range records {
		sender := model.SenderBot
		if strings.Contains(rec.ID, humanMessageMarker) {
			sender = model.SenderUser
		}
		msgs = append(msgs, model.Message{
			ID:        newMessageID(),
			SessionID: id,
			Sender:    sender,
			Text:      rec.Kwargs.Content,
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	if _, exists := s.messages[id]; !exists {
		s.messages[id] = msgs
	}
	s.mu.Unlock()

	metrics.SessionSwitchesTotal.WithLabelValues("fetched").Inc()
	s.logger.WithSession(id).Info("session history loaded", zap.Int("messages", len(msgs)))
	return true, nil
}

// LoadConversation switches to a conversation from the registry and touches
// its summary so it sorts first.
func (s *SessionStore) LoadConversation(ctx context.Context, id string) error {
	if _, err := s.SwitchSession(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	i := s.summaryIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.summaries[i].LastUpdated = time.Now()
	s.sortSummariesLocked()
	snapshot := s.summariesSnapshotLocked()
	s.mu.Unlock()

	s.persistSummaries(ctx, snapshot)
	return nil
}

// SendMessage appends a user message to the active session, forwards it to
// the backend and appends the reply. The target session id is captured by
// value at call start: the reply lands in the session it was requested for
// even if the caller switches sessions while the backend call is in flight.
//
// A call with no active session is a no-op and returns a nil response.
func (s *SessionStore) SendMessage(ctx context.Context, text string, files []model.Attachment) (*model.SendMessageResponse, error) {
	s.mu.Lock()
	target := s.activeSessionID
	if target == "" {
		s.mu.Unlock()
		s.logger.Debug("send ignored, no active session")
		return nil, nil
	}

	history := make([]model.Message, len(s.messages[target]))
	copy(history, s.messages[target])

	userMsg := model.Message{
		ID:        newMessageID(),
		SessionID: target,
		Sender:    model.SenderUser,
		Text:      text,
		Files:     files,
		CreatedAt: time.Now(),
	}
	s.messages[target] = append(s.messages[target], userMsg)
	s.waiting = true
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser)).Inc()
	s.notify(ctx, events.Event{Type: events.TypeMessageAppended, SessionID: target, Message: &userMsg})
	s.notify(ctx, events.Event{Type: events.TypeWaitingChanged, SessionID: target, Waiting: true})
	s.notify(ctx, events.Event{Type: events.TypeScrollRequested, SessionID: target})

	reply, err := s.backend.SendMessage(ctx, &backend.SendRequest{
		SessionID: target,
		Text:      text,
		Files:     files,
		History:   history,
	})
	if err != nil {
		s.mu.Lock()
		s.waiting = false
		s.mu.Unlock()
		s.notify(ctx, events.Event{Type: events.TypeWaitingChanged, SessionID: target, Waiting: false})
		return nil, fmt.Errorf("backend send failed: %w", err)
	}

	botMsg := model.Message{
		ID:        newMessageID(),
		SessionID: target,
		Sender:    model.SenderBot,
		Text:      s.replyText(reply),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.messages[target] = append(s.messages[target], botMsg)
	s.waiting = false
	s.upsertSummaryLocked(target)
	snapshot := s.summariesSnapshotLocked()
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(model.SenderBot)).Inc()
	s.notify(ctx, events.Event{Type: events.TypeMessageAppended, SessionID: target, Message: &botMsg})
	s.notify(ctx, events.Event{Type: events.TypeWaitingChanged, SessionID: target, Waiting: false})
	s.notify(ctx, events.Event{Type: events.TypeScrollRequested, SessionID: target})

	s.persistSummaries(ctx, snapshot)

	return &model.SendMessageResponse{
		SessionID:   target,
		UserMessage: &userMsg,
		BotMessage:  &botMsg,
	}, nil
}

// replyText extracts displayable text from a backend reply: the "output"
// field, then "text", then a JSON dump of the whole non-empty payload.
func (s *SessionStore) replyText(reply map[string]any) string {
	if v, ok := reply["output"].(string); ok {
		return v
	}
	if v, ok := reply["text"].(string); ok {
		return v
	}
	if len(reply) == 0 {
		return ""
	}

	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to render backend reply", zap.Error(err))
		return fallbackReplyText
	}
	return string(data)
}

// LoadPreviousSession restores the registry from persistence and switches to
// the recorded last session. When that id is not a known conversation a fresh
// session is started instead. Returns "" when resume is not configured.
func (s *SessionStore) LoadPreviousSession(ctx context.Context) (string, error) {
	if !s.opts.ResumePreviousSession {
		return "", nil
	}

	id, err := s.persist.LastSessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read last session id: %w", err)
	}

	summaries, err := s.persist.LoadSummaries(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation registry: %w", err)
	}

	s.mu.Lock()
	s.summaries = summaries
	s.sortSummariesLocked()
	known := id != "" && s.summaryIndexLocked(id) >= 0
	metrics.ConversationsTracked.Set(float64(len(s.summaries)))
	s.mu.Unlock()

	if !known {
		return s.StartNewSession(ctx)
	}

	if _, err := s.SwitchSession(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Messages returns a copy of a session's message list.
func (s *SessionStore) Messages(id string) ([]model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, true
}

// ActiveSessionID returns the session currently receiving sends.
func (s *SessionStore) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSessionID
}

// CurrentSessionID returns the session last selected by the user.
func (s *SessionStore) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSessionID
}

// Waiting reports whether a send is in flight.
func (s *SessionStore) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}
