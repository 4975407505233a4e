package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatframe/sessiond/internal/middleware"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/store"
	"github.com/chatframe/sessiond/pkg/logger"
)

// ConversationHandler handles conversation registry endpoints.
type ConversationHandler struct {
	store  *store.SessionStore
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st *store.SessionStore, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		logger: log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations := h.store.Conversations()

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations: conversations,
		Total:         len(conversations),
	})
}

// Open handles POST /api/v1/conversations/{id}/open
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.LoadConversation(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to open conversation")
		writeError(w, http.StatusBadGateway, "failed to open conversation")
		return
	}

	messages, _ := h.store.Messages(sessionID)
	writeJSON(w, http.StatusOK, &model.SwitchSessionResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}
