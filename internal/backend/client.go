// Package backend provides clients for the external chat backend.
package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/chatframe/sessiond/internal/model"
)

// SendRequest carries a user message to the backend. History holds the prior
// messages of the target session, oldest first; clients that keep their own
// state ignore it.
type SendRequest struct {
	SessionID string
	Text      string
	Files     []model.Attachment
	History   []model.Message
}

// HistoryKwargs holds the payload of a stored history record.
type HistoryKwargs struct {
	Content string `json:"content"`
}

// HistoryRecord is a raw record returned when loading a previous session.
// The record id encodes the sender: ids containing "HumanMessage" denote a
// human turn, everything else is treated as a bot turn.
type HistoryRecord struct {
	ID     string        `json:"id"`
	Kwargs HistoryKwargs `json:"kwargs"`
}

// Client is the interface for chat backends.
//
// SendMessage returns the backend's reply as an arbitrary JSON object; the
// caller decides how to extract displayable text from it.
type Client interface {
	// SendMessage delivers a user message and returns the raw reply payload.
	SendMessage(ctx context.Context, req *SendRequest) (map[string]any, error)

	// LoadSession fetches the stored history for a session. Backends without
	// server-side history return an empty slice.
	LoadSession(ctx context.Context, sessionID string) ([]HistoryRecord, error)

	// Name returns the backend name.
	Name() string
}

// Kind is the type of chat backend.
type Kind string

const (
	KindWebhook   Kind = "webhook"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// Config holds settings shared by backend constructors.
type Config struct {
	WebhookURL     string
	WebhookTimeout time.Duration
	APIKey         string
	Model          string
}

// NewClient creates a backend client for the given kind.
func NewClient(kind Kind, cfg Config) (Client, error) {
	switch kind {
	case KindOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model)
	case KindAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model)
	default:
		var opts []WebhookOption
		if cfg.WebhookTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.WebhookTimeout}))
		}
		return NewWebhookClient(cfg.WebhookURL, opts...)
	}
}
