package handler

import (
	"encoding/json"
	"net/http"

	"github.com/chatframe/sessiond/internal/middleware"
	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/internal/store"
	"github.com/chatframe/sessiond/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	store  *store.SessionStore
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(st *store.SessionStore, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:  st,
		logger: log,
	}
}

// Send handles POST /api/v1/messages
// The message goes to the active session; without one the call is rejected.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, f := range req.Files {
		if err := middleware.ValidateFileName(f.FileName); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.store.SendMessage(r.Context(), req.Text, req.Files)
	if err != nil {
		h.logger.Error("failed to send message")
		writeError(w, http.StatusBadGateway, "failed to send message")
		return
	}

	if resp == nil {
		writeError(w, http.StatusConflict, "no active session")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
