// Package model defines data structures for the chat session service.
package model

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Attachment describes a file sent alongside a message. Only metadata is
// carried here; file bytes travel to the backend out of band.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is a single entry in a session's history. Messages are immutable
// once created; ordering within a session is append order.
type Message struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Sender    Sender       `json:"sender"`
	Text      string       `json:"text"`
	Files     []Attachment `json:"files,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// SendMessageRequest is the request to send a message on the active session.
type SendMessageRequest struct {
	Text  string       `json:"text"`
	Files []Attachment `json:"files,omitempty"`
}

// SendMessageResponse is the response after a completed exchange.
type SendMessageResponse struct {
	SessionID  string   `json:"session_id"`
	UserMessage *Message `json:"user_message,omitempty"`
	BotMessage  *Message `json:"bot_message,omitempty"`
}

// ListMessagesResponse is the response for listing a session's messages.
type ListMessagesResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}
