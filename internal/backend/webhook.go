package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/pkg/metrics"
)

const (
	actionSendMessage         = "sendMessage"
	actionLoadPreviousSession = "loadPreviousSession"
)

// WebhookClient talks to a JSON-over-HTTP chat workflow endpoint. The reply
// payload is whatever JSON object the workflow produces.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// WebhookOption configures a WebhookClient.
type WebhookOption func(*WebhookClient)

// WithHTTPClient sets the HTTP client used for webhook calls.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookClient) {
		w.httpClient = c
	}
}

// NewWebhookClient creates a new webhook backend client.
func NewWebhookClient(url string, opts ...WebhookOption) (*WebhookClient, error) {
	if url == "" {
		return nil, errors.New("webhook URL is required")
	}

	c := &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the backend name.
func (c *WebhookClient) Name() string {
	return "webhook"
}

type webhookPayload struct {
	Action    string             `json:"action"`
	SessionID string             `json:"sessionId"`
	ChatInput string             `json:"chatInput,omitempty"`
	Files     []model.Attachment `json:"files,omitempty"`
}

func (c *WebhookClient) post(ctx context.Context, payload webhookPayload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode webhook response: %w", err)
	}
	return nil
}

// SendMessage implements Client.
func (c *WebhookClient) SendMessage(ctx context.Context, req *SendRequest) (map[string]any, error) {
	start := time.Now()

	var reply map[string]any
	err := c.post(ctx, webhookPayload{
		Action:    actionSendMessage,
		SessionID: req.SessionID,
		ChatInput: req.Text,
		Files:     req.Files,
	}, &reply)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordBackendRequest(c.Name(), actionSendMessage, status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return reply, nil
}

// LoadSession implements Client.
func (c *WebhookClient) LoadSession(ctx context.Context, sessionID string) ([]HistoryRecord, error) {
	start := time.Now()

	var reply struct {
		Data []HistoryRecord `json:"data"`
	}
	err := c.post(ctx, webhookPayload{
		Action:    actionLoadPreviousSession,
		SessionID: sessionID,
	}, &reply)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordBackendRequest(c.Name(), actionLoadPreviousSession, status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}
