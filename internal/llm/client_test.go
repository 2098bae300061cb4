package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/pkg/state"
)

// stubProvider speaks a minimal OpenAI-shaped dialect against httptest servers.
type stubProvider struct{}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) BuildURL(baseURL string) string { return baseURL }

func (p *stubProvider) SetHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer test-key")
}

func (p *stubProvider) BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int,
	tools []ToolDefinition, toolChoice string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"model":    model,
		"messages": messages,
		"tools":    tools,
	})
}

func (p *stubProvider) ParseResponse(body []byte, model string) (*Response, error) {
	var parsed struct {
		Content          string     `json:"content"`
		ReasoningContent string     `json:"reasoning_content"`
		ToolCalls        []ToolCall `json:"tool_calls"`
		TotalTokens      int        `json:"total_tokens"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return &Response{
		Content:          parsed.Content,
		ReasoningContent: parsed.ReasoningContent,
		ToolCalls:        parsed.ToolCalls,
		Model:            model,
		Usage:            TokenUsage{TotalTokens: parsed.TotalTokens},
		FinishReason:     "stop",
	}, nil
}

func init() {
	RegisterProvider(&stubProvider{})
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func newTestClient(serverURL string) *Client {
	return NewClient(Endpoint{
		Provider:   "stub",
		BaseURL:    serverURL,
		Model:      "test-model",
		TokenLimit: 100_000,
	}, WithRetryConfig(fastRetry()))
}

func TestCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		json.NewEncoder(w).Encode(map[string]any{
			"content":           "Chapter one begins at dusk.",
			"reasoning_content": "The opening should establish tone.",
			"tool_calls": []map[string]any{
				{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      "write_chapter",
						"arguments": `{"chapter_number": 1}`,
					},
				},
			},
			"total_tokens": 1234,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "write chapter 1"}},
		Tools: []ToolDefinition{
			{Name: "write_chapter", Parameters: map[string]any{"type": "object"}},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "Chapter one begins at dusk.", resp.Content)
	assert.Equal(t, "The opening should establish tone.", resp.ReasoningContent)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "write_chapter", resp.ToolCalls[0].Function.Name)
	assert.Equal(t, 1234, resp.Usage.TotalTokens)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"content": "recovered"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteExhaustedRetriesIsConnectionError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var connErr *state.ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteFatalErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var connErr *state.ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteRequiresMessages(t *testing.T) {
	client := newTestClient("http://localhost:0")
	_, err := client.Complete(context.Background(), Request{})
	assert.True(t, state.IsValidation(err))
}

func TestCompleteUnknownProvider(t *testing.T) {
	client := NewClient(Endpoint{Provider: "nonexistent", Model: "m"})
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.True(t, state.IsValidation(err))
}

func TestCalculateBackoffIsCapped(t *testing.T) {
	client := NewClient(Endpoint{Provider: "stub"}, WithRetryConfig(RetryConfig{
		MaxAttempts:       10,
		BackoffBase:       time.Second,
		BackoffMultiplier: 10.0,
		MaxBackoff:        5 * time.Second,
	}))

	// Jitter is +/- 25%, so the cap holds within that band.
	backoff := client.calculateBackoff(8)
	assert.LessOrEqual(t, backoff, time.Duration(float64(5*time.Second)*1.25))
	assert.GreaterOrEqual(t, backoff, time.Duration(float64(5*time.Second)*0.75))
}
