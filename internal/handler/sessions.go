// Package handler provides HTTP handlers for the session service API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatframe/sessiond/internal/middleware"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/store"
	"github.com/chatframe/sessiond/pkg/logger"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	store  *store.SessionStore
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(st *store.SessionStore, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		store:  st,
		logger: log,
	}
}

// Start handles POST /api/v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.StartNewSession(r.Context())
	if err != nil {
		h.logger.Error("failed to start session")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	messages, _ := h.store.Messages(id)
	writeJSON(w, http.StatusCreated, &model.StartSessionResponse{
		SessionID: id,
		Messages:  messages,
	})
}

// Switch handles POST /api/v1/sessions/{id}/switch
func (h *SessionHandler) Switch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetched, err := h.store.SwitchSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to switch session")
		writeError(w, http.StatusBadGateway, "failed to load session history")
		return
	}

	messages, _ := h.store.Messages(sessionID)
	writeJSON(w, http.StatusOK, &model.SwitchSessionResponse{
		SessionID: sessionID,
		Fetched:   fetched,
		Messages:  messages,
	})
}

// Resume handles POST /api/v1/sessions/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.LoadPreviousSession(r.Context())
	if err != nil {
		h.logger.Error("failed to resume previous session")
		writeError(w, http.StatusBadGateway, "failed to resume previous session")
		return
	}

	writeJSON(w, http.StatusOK, &model.ResumeSessionResponse{
		SessionID: id,
		Resumed:   id != "",
	})
}

// Messages handles GET /api/v1/sessions/{id}/messages
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, ok := h.store.Messages(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}
