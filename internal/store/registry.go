package store

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/pkg/metrics"
)

// conversationName generates the display name for a freshly promoted
// conversation from its creation time.
func conversationName(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

// Conversations returns the registry, sorted by recency descending.
func (s *SessionStore) Conversations() []model.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summariesSnapshotLocked()
}

// Conversation looks up a summary by session id.
func (s *SessionStore) Conversation(id string) (model.ConversationSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.summaryIndexLocked(id); i >= 0 {
		return s.summaries[i], true
	}
	return model.ConversationSummary{}, false
}

func (s *SessionStore) summaryIndexLocked(id string) int {
	for i := range s.summaries {
		if s.summaries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *SessionStore) summariesSnapshotLocked() []model.ConversationSummary {
	out := make([]model.ConversationSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

func (s *SessionStore) countsLocked(id string) model.MessageCount {
	var counts model.MessageCount
	for _, msg := range s.messages[id] {
		switch msg.Sender {
		case model.SenderUser:
			counts.User++
		case model.SenderBot:
			counts.Bot++
		}
	}
	return counts
}

// upsertSummaryLocked promotes a session into the registry once it holds at
// least one message from each sender, or refreshes its counts and timestamp
// when already present. The registry is re-sorted afterwards.
func (s *SessionStore) upsertSummaryLocked(id string) {
	counts := s.countsLocked(id)
	if counts.User < 1 || counts.Bot < 1 {
		return
	}

	now := time.Now()
	if i := s.summaryIndexLocked(id); i >= 0 {
		s.summaries[i].LastUpdated = now
		s.summaries[i].MessageCount = counts
	} else {
		s.summaries = append(s.summaries, model.ConversationSummary{
			ID:           id,
			Name:         conversationName(now),
			LastUpdated:  now,
			MessageCount: counts,
		})
	}

	s.sortSummariesLocked()
	metrics.ConversationsTracked.Set(float64(len(s.summaries)))
}

func (s *SessionStore) sortSummariesLocked() {
	sort.SliceStable(s.summaries, func(i, j int) bool {
		return s.summaries[i].LastUpdated.After(s.summaries[j].LastUpdated)
	})
}

// persistSummaries writes the registry snapshot. Persistence failures are
// logged and counted, not propagated: a write failure must not fail the
// exchange that triggered it.
func (s *SessionStore) persistSummaries(ctx context.Context, snapshot []model.ConversationSummary) {
	if err := s.persist.SaveSummaries(ctx, snapshot); err != nil {
		metrics.RegistryWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("failed to persist conversation registry", zap.Error(err))
		return
	}
	metrics.RegistryWritesTotal.WithLabelValues("success").Inc()
}
