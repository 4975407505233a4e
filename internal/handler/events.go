package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chatframe/sessiond/internal/events"
	"github.com/chatframe/sessiond/pkg/logger"
	"github.com/chatframe/sessiond/pkg/metrics"
)

// EventHandler streams store notifications over SSE so the widget front-end
// can react to appended messages, waiting-flag changes and scroll requests.
type EventHandler struct {
	hub    *events.Hub
	logger *logger.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(hub *events.Hub, log *logger.Logger) *EventHandler {
	return &EventHandler{
		hub:    hub,
		logger: log,
	}
}

// HeartbeatEvent keeps idle SSE connections alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Stream handles GET /api/v1/events
// Supports ?session_id=ID to receive events for a single session only.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionFilter := r.URL.Query().Get("session_id")

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Buffered so a slow client never blocks the store; overflow drops.
	ch := make(chan events.Event, 64)
	unsubscribe := h.hub.Subscribe(func(event events.Event) {
		if sessionFilter != "" && event.SessionID != sessionFilter {
			return
		}
		select {
		case ch <- event:
		default:
		}
	})
	defer unsubscribe()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"session_id": sessionFilter,
	})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected")
			return

		case event := <-ch:
			sendSSEEvent(w, flusher, string(event.Type), event)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
