package backend

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chatframe/sessiond/internal/model"
	"github.com/chatframe/sessiond/pkg/metrics"
)

// AnthropicClient answers chat messages directly with the Anthropic API.
// Session history is replayed from the request; LoadSession always returns
// empty.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic backend client.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name returns the backend name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// SendMessage implements Client.
func (c *AnthropicClient) SendMessage(ctx context.Context, req *SendRequest) (map[string]any, error) {
	start := time.Now()

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, msg := range req.History {
		messages = append(messages, messageParam(anthropicRole(msg.Sender), msg.Text))
	}
	messages = append(messages, messageParam(anthropic.MessageParamRoleUser, req.Text))

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(c.model),
		MaxTokens: anthropic.F(int64(4096)),
		Messages:  anthropic.F(messages),
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
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return map[string]any{
		"text":       content,
		"model":      resp.Model,
		"tokens_in":  int(resp.Usage.InputTokens),
		"tokens_out": int(resp.Usage.OutputTokens),
	}, nil
}

// LoadSession implements Client.
func (c *AnthropicClient) LoadSession(ctx context.Context, sessionID string) ([]HistoryRecord, error) {
	return nil, nil
}

func messageParam(role anthropic.MessageParamRole, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.F(role),
		Content: anthropic.F([]anthropic.ContentBlockParamUnion{
			anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(text),
			},
		}),
	}
}

func anthropicRole(sender model.Sender) anthropic.MessageParamRole {
	if sender == model.SenderUser {
		return anthropic.MessageParamRoleUser
	}
	return anthropic.MessageParamRoleAssistant
}
