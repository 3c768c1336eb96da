package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftist/engage/internal/engagement"
)

func newTestSender(serverURL string) *Sender {
	return NewSender(Config{
		Enabled:       true,
		PhoneNumberID: "12345",
		AccessToken:   "token",
		BaseURL:       serverURL,
		RateLimit:     1000,
		Burst:         1000,
	})
}

func TestSender_SendText(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages": [{"id": "wamid.abc"}]}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	id, err := sender.Send(context.Background(), engagement.OutboundMessage{
		To:      "+15550100",
		Body:    "hello there",
		Session: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", id)

	assert.Equal(t, "whatsapp", received["messaging_product"])
	assert.Equal(t, "text", received["type"])
	text := received["text"].(map[string]any)
	assert.Equal(t, "hello there", text["body"])
}

func TestSender_SendTemplate(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"messages": [{"id": "wamid.tpl"}]}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	id, err := sender.Send(context.Background(), engagement.OutboundMessage{
		To:             "+15550100",
		Body:           "ignored out of session",
		Template:       "daily_nudge",
		TemplateParams: []string{"Ada", "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.tpl", id)

	assert.Equal(t, "template", received["type"])
	tmpl := received["template"].(map[string]any)
	assert.Equal(t, "daily_nudge", tmpl["name"])

	components := tmpl["components"].([]any)
	require.Len(t, components, 1)
	params := components[0].(map[string]any)["parameters"].([]any)
	require.Len(t, params, 2)
	assert.Equal(t, "Ada", params[0].(map[string]any)["text"])
}

func TestSender_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"not found", http.StatusNotFound, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "code": 1}}`))
			}))
			defer server.Close()

			sender := newTestSender(server.URL)
			_, err := sender.Send(context.Background(), engagement.OutboundMessage{To: "+15550100", Session: true})
			require.Error(t, err)

			type retryable interface{ IsRetryable() bool }
			r, ok := err.(retryable)
			require.True(t, ok, "error should carry retry classification")
			assert.Equal(t, tt.retryable, r.IsRetryable())
		})
	}
}

func TestSender_Disabled(t *testing.T) {
	sender := NewSender(Config{Enabled: false})

	id, err := sender.Send(context.Background(), engagement.OutboundMessage{To: "+15550100", Body: "hi"})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSender_MissingMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"messages": []}`))
	}))
	defer server.Close()

	sender := newTestSender(server.URL)
	_, err := sender.Send(context.Background(), engagement.OutboundMessage{To: "+15550100", Session: true})
	assert.Error(t, err)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***0100", maskPhone("+15550100"))
	assert.Equal(t, "***", maskPhone("123"))
}
