package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatframe/sessiond/internal/model"
)

func TestWebhookClientRequiresURL(t *testing.T) {
	_, err := NewWebhookClient("")
	assert.Error(t, err)
}

func TestWebhookSendMessage(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":"hello from workflow","extra":42}`))
	}))
	defer srv.Close()

	c, err := NewWebhookClient(srv.URL)
	require.NoError(t, err)

	reply, err := c.SendMessage(context.Background(), &SendRequest{
		SessionID: "session-1",
		Text:      "hi",
		Files:     []model.Attachment{{FileName: "report.pdf"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "sendMessage", got.Action)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "hi", got.ChatInput)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "report.pdf", got.Files[0].FileName)

	// The reply is the raw payload, untouched.
	assert.Equal(t, "hello from workflow", reply["output"])
	assert.Equal(t, float64(42), reply["extra"])
}

func TestWebhookLoadSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "loadPreviousSession", got.Action)
		assert.Equal(t, "session-2", got.SessionID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"HumanMessage-1","kwargs":{"content":"hey"}},
			{"id":"AIMessage-2","kwargs":{"content":"hello!"}}
		]}`))
	}))
	defer srv.Close()

	c, err := NewWebhookClient(srv.URL)
	require.NoError(t, err)

	records, err := c.LoadSession(context.Background(), "session-2")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "HumanMessage-1", records[0].ID)
	assert.Equal(t, "hey", records[0].Kwargs.Content)
	assert.Equal(t, "hello!", records[1].Kwargs.Content)
}

func TestWebhookNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewWebhookClient(srv.URL)
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), &SendRequest{SessionID: "s", Text: "hi"})
	assert.Error(t, err)

	_, err = c.LoadSession(context.Background(), "s")
	assert.Error(t, err)
}
