package backend

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/pkg/metrics"
)

// OpenAIClient answers chat messages directly with the OpenAI API. Session
// history is replayed from the request; OpenAI keeps no server-side state, so
// LoadSession always returns empty.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI backend client.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the backend name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// SendMessage implements Client.
func (c *OpenAIClient) SendMessage(ctx context.Context, req *SendRequest) (map[string]any, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	for _, msg := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(msg.Sender),
			Content: msg.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordBackendRequest(c.Name(), actionSendMessage, status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return map[string]any{
		"text":       content,
		"model":      resp.Model,
		"tokens_in":  resp.Usage.PromptTokens,
		"tokens_out": resp.Usage.CompletionTokens,
	}, nil
}

// LoadSession implements Client.
func (c *OpenAIClient) LoadSession(ctx context.Context, sessionID string) ([]HistoryRecord, error) {
	return nil, nil
}

func chatRole(sender model.Sender) string {
	if sender == model.SenderUser {
		return openai.ChatMessageRoleUser
	}
	return openai.ChatMessageRoleAssistant
}
