package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatframe/sessiond/internal/backend"
	"github.com/chatframe/sessiond/internal/events"
	"github.com/chatframe/sessiond/internal/handler"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/persist"
	"github.com/chatframe/sessiond/internal/store"
	"github.com/chatframe/sessiond/pkg/logger"
)

type scriptedBackend struct {
	reply   map[string]any
	history []backend.HistoryRecord
}

func (b *scriptedBackend) SendMessage(ctx context.Context, req *backend.SendRequest) (map[string]any, error) {
	return b.reply, nil
}

func (b *scriptedBackend) LoadSession(ctx context.Context, sessionID string) ([]backend.HistoryRecord, error) {
	return b.history, nil
}

func (b *scriptedBackend) Name() string { return "scripted" }

// testRouter wires handlers the way cmd/sessiond does, minus auth.
func testRouter(t *testing.T, bc backend.Client) (*chi.Mux, persist.Store) {
	t.Helper()

	log := logger.NewNop()
	ps, err := persist.NewStore(persist.DriverMemory)
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	hub := events.NewHub()
	st := store.New(bc, ps, hub, log, store.Options{
		InitialMessages: []string{"Hi there!"},
	})

	sessionHandler := handler.NewSessionHandler(st, log)
	conversationHandler := handler.NewConversationHandler(st, log)
	messageHandler := handler.NewMessageHandler(st, log)
	healthHandler := handler.NewHealthHandler(ps, nil)

	r := chi.NewRouter()
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Post("/resume", sessionHandler.Resume)
			r.Post("/{id}/switch", sessionHandler.Switch)
			r.Get("/{id}/messages", sessionHandler.Messages)
		})
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/{id}/open", conversationHandler.Open)
		})
		r.Post("/messages", messageHandler.Send)
	})
	return r, ps
}

func TestHealthAndReady(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{reply: map[string]any{"text": "hello"}})

	// Start a session.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var started model.StartSessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&started))
	require.NotEmpty(t, started.SessionID)
	require.Len(t, started.Messages, 1)
	assert.Equal(t, "Hi there!", started.Messages[0].Text)

	// Send a message on the active session.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"text":"hi"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	var sent model.SendMessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sent))
	assert.Equal(t, started.SessionID, sent.SessionID)
	assert.Equal(t, "hello", sent.BotMessage.Text)

	// The conversation shows up in the registry.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listed model.ListConversationsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, started.SessionID, listed.Conversations[0].ID)

	// Message history is readable.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/sessions/"+started.SessionID+"/messages", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var msgs model.ListMessagesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msgs))
	assert.Len(t, msgs.Messages, 3) // greeting + user + bot
}

func TestSendWithoutActiveSessionConflicts(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{reply: map[string]any{"text": "hello"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendRejectsInvalidBody(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"text":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwitchRejectsMalformedID(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/nope/switch", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessagesForUnknownSessionNotFound(t *testing.T) {
	r, _ := testRouter(t, &scriptedBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/sessions/018f0000-0000-7000-8000-0000000000ff/messages", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
