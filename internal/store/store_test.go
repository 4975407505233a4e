package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatframe/sessiond/internal/backend"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/persist"
	"github.com/chatframe/sessiond/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewNop()
}

// stubBackend is a scriptable backend.Client for tests.
type stubBackend struct {
	mu        sync.Mutex
	reply     map[string]any
	history   []backend.HistoryRecord
	sendErr   error
	loadErr   error
	sendCalls int
	loadCalls int
	lastSend  *backend.SendRequest

	// When set, SendMessage signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (b *stubBackend) SendMessage(ctx context.Context, req *backend.SendRequest) (map[string]any, error) {
	b.mu.Lock()
	b.sendCalls++
	b.lastSend = req
	entered, release := b.entered, b.release
	reply, err := b.reply, b.sendErr
	b.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (b *stubBackend) LoadSession(ctx context.Context, sessionID string) ([]backend.HistoryRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadCalls++
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.history, nil
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) sends() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendCalls
}

func (b *stubBackend) loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadCalls
}

func newTestStore(t *testing.T, bc backend.Client, opts Options) (*SessionStore, persist.Store) {
	t.Helper()

	ps, err := persist.NewStore(persist.DriverMemory)
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	return New(bc, ps, nil, testLogger(), opts), ps
}

func TestStartNewSessionSeedsInitialMessages(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{}
	st, ps := newTestStore(t, bc, Options{
		InitialMessages: []string{"Hi there!", "How can I help?"},
	})

	id, err := st.StartNewSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, id, st.ActiveSessionID())
	assert.Equal(t, id, st.CurrentSessionID())

	msgs, ok := st.Messages(id)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi there!", msgs[0].Text)
	assert.Equal(t, "How can I help?", msgs[1].Text)
	for _, msg := range msgs {
		assert.Equal(t, model.SenderBot, msg.Sender)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}

	// No network call and no registry entry before a real exchange.
	assert.Zero(t, bc.sends())
	assert.Zero(t, bc.loads())
	assert.Empty(t, st.Conversations())

	// The new session is recorded for resume.
	last, err := ps.LastSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, last)
}

func TestStartNewSessionGeneratesFreshIDs(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, &stubBackend{}, Options{})

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := st.StartNewSession(ctx)
		require.NoError(t, err)
		require.False(t, seen[id], "session id %q reused", id)
		seen[id] = true
	}
}

func TestSwitchSessionFetchesOnceThenCaches(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{
		history: []backend.HistoryRecord{
			{ID: "HumanMessage-1", Kwargs: backend.HistoryKwargs{Content: "hey"}},
			{ID: "AIMessage-2", Kwargs: backend.HistoryKwargs{Content: "hello!"}},
		},
	}
	st, _ := newTestStore(t, bc, Options{})

	fetched, err := st.SwitchSession(ctx, "018f0000-0000-7000-8000-000000000001")
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, 1, bc.loads())

	// Second and further switches hit the cache.
	for i := 0; i < 3; i++ {
		fetched, err = st.SwitchSession(ctx, "018f0000-0000-7000-8000-000000000001")
		require.NoError(t, err)
		assert.False(t, fetched)
	}
	assert.Equal(t, 1, bc.loads())
}

func TestSwitchSessionInfersSenderFromRecordID(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{
		history: []backend.HistoryRecord{
			{ID: "HumanMessage-1", Kwargs: backend.HistoryKwargs{Content: "hey"}},
		},
	}
	st, _ := newTestStore(t, bc, Options{})

	fetched, err := st.SwitchSession(ctx, "018f0000-0000-7000-8000-000000000002")
	require.NoError(t, err)
	require.True(t, fetched)

	msgs, ok := st.Messages("018f0000-0000-7000-8000-000000000002")
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hey", msgs[0].Text)
}

func TestSwitchSessionPropagatesBackendError(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{loadErr: errors.New("backend down")}
	st, _ := newTestStore(t, bc, Options{})

	_, err := st.SwitchSession(ctx, "018f0000-0000-7000-8000-000000000003")
	require.Error(t, err)

	// History was never stored, so a retry fetches again.
	_, ok := st.Messages("018f0000-0000-7000-8000-000000000003")
	assert.False(t, ok)
}

func TestSendMessageCompletesExchangeAndPromotesConversation(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{reply: map[string]any{"text": "hello"}}
	st, ps := newTestStore(t, bc, Options{})

	id, err := st.StartNewSession(ctx)
	require.NoError(t, err)

	resp, err := st.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, id, resp.SessionID)
	assert.Equal(t, "hi", resp.UserMessage.Text)
	assert.Equal(t, "hello", resp.BotMessage.Text)

	msgs, _ := st.Messages(id)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, model.SenderBot, msgs[1].Sender)

	convs := st.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, id, convs[0].ID)
	assert.NotEmpty(t, convs[0].Name)
	assert.Equal(t, model.MessageCount{User: 1, Bot: 1}, convs[0].MessageCount)

	// Registry was persisted.
	persisted, err := ps.LoadSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, id, persisted[0].ID)
}

func TestSendMessageWithoutActiveSessionIsNoOp(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{reply: map[string]any{"text": "hello"}}
	st, _ := newTestStore(t, bc, Options{})

	resp, err := st.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, bc.sends())
}

func TestSendMessageBackendFailureClearsWaiting(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{sendErr: errors.New("backend down")}
	st, _ := newTestStore(t, bc, Options{})

	id, err := st.StartNewSession(ctx)
	require.NoError(t, err)

	_, err = st.SendMessage(ctx, "hi", nil)
	require.Error(t, err)
	assert.False(t, st.Waiting())

	// The user message stays; no bot reply, no conversation promoted.
	msgs, _ := st.Messages(id)
	require.Len(t, msgs, 1)
	assert.Empty(t, st.Conversations())
}

func TestReplyTextExtraction(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		reply map[string]any
		want  string
	}{
		{"output field wins", map[string]any{"output": "o", "text": "t"}, "o"},
		{"text field fallback", map[string]any{"text": "t"}, "t"},
		{"opaque payload dumped", map[string]any{"foo": "bar"}, `{"foo":"bar"}`},
		{"empty payload", map[string]any{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := &stubBackend{reply: tt.reply}
			st, _ := newTestStore(t, bc, Options{})

			_, err := st.StartNewSession(ctx)
			require.NoError(t, err)

			resp, err := st.SendMessage(ctx, "hi", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.BotMessage.Text)
		})
	}
}

func TestUnrenderableReplyGetsPlaceholder(t *testing.T) {
	ctx := context.Background()
	// Channels cannot be marshaled to JSON.
	bc := &stubBackend{reply: map[string]any{"payload": make(chan int)}}
	st, _ := newTestStore(t, bc, Options{})

	_, err := st.StartNewSession(ctx)
	require.NoError(t, err)

	resp, err := st.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackReplyText, resp.BotMessage.Text)
	assert.NotEmpty(t, resp.BotMessage.Text)
}

func TestRegistrySortedByRecency(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{reply: map[string]any{"text": "ok"}}
	st, _ := newTestStore(t, bc, Options{})

	a, err := st.StartNewSession(ctx)
	require.NoError(t, err)
	_, err = st.SendMessage(ctx, "first", nil)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	b, err := st.StartNewSession(ctx)
	require.NoError(t, err)
	_, err = st.SendMessage(ctx, "second", nil)
	require.NoError(t, err)

	convs := st.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, b, convs[0].ID)
	assert.Equal(t, a, convs[1].ID)

	firstUpdated := convs[1].LastUpdated

	// Another exchange on A bumps it back to the top.
	time.Sleep(2 * time.Millisecond)
	_, err = st.SwitchSession(ctx, a)
	require.NoError(t, err)
	_, err = st.SendMessage(ctx, "again", nil)
	require.NoError(t, err)

	convs = st.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, a, convs[0].ID)
	assert.True(t, convs[0].LastUpdated.After(firstUpdated))
	assert.Equal(t, model.MessageCount{User: 2, Bot: 2}, convs[0].MessageCount)
}

func TestInFlightReplyLandsInOriginalSession(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{
		reply:   map[string]any{"text": "late reply"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	st, _ := newTestStore(t, bc, Options{})

	a, err := st.StartNewSession(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, sendErr := st.SendMessage(ctx, "hi", nil)
		assert.NoError(t, sendErr)
	}()

	// Wait until the backend call is in flight, then navigate away.
	<-bc.entered
	assert.True(t, st.Waiting())

	bSession, err := st.StartNewSession(ctx)
	require.NoError(t, err)
	require.NotEqual(t, a, bSession)

	close(bc.release)
	<-done

	msgsA, _ := st.Messages(a)
	require.Len(t, msgsA, 2)
	assert.Equal(t, "late reply", msgsA[1].Text)
	assert.Equal(t, a, msgsA[1].SessionID)

	msgsB, _ := st.Messages(bSession)
	assert.Empty(t, msgsB)
}

func TestLoadConversationTouchesSummary(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{reply: map[string]any{"text": "ok"}}
	st, ps := newTestStore(t, bc, Options{})

	id, err := st.StartNewSession(ctx)
	require.NoError(t, err)
	_, err = st.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)

	before, ok := st.Conversation(id)
	require.True(t, ok)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, st.LoadConversation(ctx, id))

	after, ok := st.Conversation(id)
	require.True(t, ok)
	assert.True(t, after.LastUpdated.After(before.LastUpdated))

	persisted, err := ps.LoadSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, after.LastUpdated.UnixNano(), persisted[0].LastUpdated.UnixNano())
}

func TestLoadPreviousSessionDisabled(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, &stubBackend{}, Options{ResumePreviousSession: false})

	id, err := st.LoadPreviousSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, st.ActiveSessionID())
}

func TestLoadPreviousSessionResumesKnownConversation(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{
		history: []backend.HistoryRecord{
			{ID: "HumanMessage-1", Kwargs: backend.HistoryKwargs{Content: "hey"}},
		},
	}
	st, ps := newTestStore(t, bc, Options{ResumePreviousSession: true})

	prev := "018f0000-0000-7000-8000-00000000000a"
	require.NoError(t, ps.SaveSummaries(ctx, []model.ConversationSummary{{
		ID:           prev,
		Name:         "Jan 1, 2026 9:00 AM",
		LastUpdated:  time.Now(),
		MessageCount: model.MessageCount{User: 1, Bot: 1},
	}}))
	require.NoError(t, ps.SetLastSessionID(ctx, prev))

	id, err := st.LoadPreviousSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, prev, id)
	assert.Equal(t, prev, st.ActiveSessionID())
	assert.Equal(t, 1, bc.loads())

	// The persisted registry is now in memory.
	convs := st.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, prev, convs[0].ID)
}

func TestLoadPreviousSessionFallsBackToNewSession(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{}
	st, ps := newTestStore(t, bc, Options{ResumePreviousSession: true})

	// Last-session id points at a session with no persisted conversation.
	require.NoError(t, ps.SetLastSessionID(ctx, "018f0000-0000-7000-8000-00000000000b"))

	id, err := st.LoadPreviousSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotEqual(t, "018f0000-0000-7000-8000-00000000000b", id)
	assert.Equal(t, id, st.ActiveSessionID())
	assert.Zero(t, bc.loads())
}

func TestSendMessagePassesHistoryToBackend(t *testing.T) {
	ctx := context.Background()
	bc := &stubBackend{reply: map[string]any{"text": "ok"}}
	st, _ := newTestStore(t, bc, Options{InitialMessages: []string{"welcome"}})

	_, err := st.StartNewSession(ctx)
	require.NoError(t, err)

	_, err = st.SendMessage(ctx, "hi", nil)
	require.NoError(t, err)

	bc.mu.Lock()
	defer bc.mu.Unlock()
	require.NotNil(t, bc.lastSend)
	assert.Equal(t, "hi", bc.lastSend.Text)
	// History holds the messages prior to this send, the seeded greeting.
	require.Len(t, bc.lastSend.History, 1)
	assert.Equal(t, "welcome", bc.lastSend.History[0].Text)
}
