package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatServer returns a test server answering /chat/completions with the
// given content, and a pointer to the last decoded request.
func newChatServer(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	last := &chatRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(last))

		resp := chatResponse{Model: "gpt-4o-mini"}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{})
		resp.Choices[0].Message.Content = content
		resp.Usage.PromptTokens = 10
		resp.Usage.CompletionTokens = 5
		resp.Usage.TotalTokens = 15
		_ = json.NewEncoder(w).Encode(resp)
	}))
	return srv, last
}

// TestNewOpenAIClient_RequiresKey verifies an empty key is rejected.
func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("   ")
	assert.Error(t, err)
}

// TestOpenAIClient_Generate tests a successful completion round trip.
func TestOpenAIClient_Generate(t *testing.T) {
	srv, last := newChatServer(t, "historical_data_agent")
	defer srv.Close()

	client, err := NewOpenAIClient("test-key", WithBaseURL(srv.URL), WithModel("gpt-4o-mini"))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "route the request"},
			{Role: RoleUser, Content: "chart ethereum"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "historical_data_agent", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", last.Model)
	assert.Len(t, last.Messages, 2)
}

// TestOpenAIClient_Generate_FoldsToolMessages verifies tool turns are sent
// as tagged user turns.
func TestOpenAIClient_Generate_FoldsToolMessages(t *testing.T) {
	srv, last := newChatServer(t, "ok")
	defer srv.Close()

	client, err := NewOpenAIClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleTool, Name: "coin_info", Content: `{"name":"Bitcoin"}`},
		},
	})
	require.NoError(t, err)

	require.Len(t, last.Messages, 1)
	assert.Equal(t, "user", last.Messages[0].Role)
	assert.Contains(t, last.Messages[0].Content, "coin_info")
	assert.Contains(t, last.Messages[0].Content, "Bitcoin")
}

// TestOpenAIClient_Generate_ErrorStatus verifies retryability by status code.
func TestOpenAIClient_Generate_ErrorStatus(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			client, err := NewOpenAIClient("test-key", WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), Request{})
			require.Error(t, err)
			assert.Equal(t, tc.retryable, IsRetryable(err))
		})
	}
}

// TestOpenAIClient_Generate_EmptyChoices verifies the no-choices failure path.
func TestOpenAIClient_Generate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
