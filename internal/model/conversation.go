package model

import (
	"time"
)

// MessageCount tracks per-sender message totals for a conversation.
type MessageCount struct {
	User int `json:"user"`
	Bot  int `json:"bot"`
}

// ConversationSummary is the persisted, user-facing record of a session that
// has accumulated at least one real exchange. Summaries are derived state: the
// session store owns message content, a summary never does.
type ConversationSummary struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	LastUpdated  time.Time    `json:"last_updated"`
	MessageCount MessageCount `json:"message_count"`
}

// StartSessionResponse is the response after starting a new session.
type StartSessionResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// SwitchSessionResponse is the response after switching to a session.
type SwitchSessionResponse struct {
	SessionID string    `json:"session_id"`
	Fetched   bool      `json:"fetched"`
	Messages  []Message `json:"messages"`
}

// ResumeSessionResponse is the response after attempting to resume the
// previous session.
type ResumeSessionResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Resumed   bool   `json:"resumed"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}
