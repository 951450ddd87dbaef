package summarizer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-report-service/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.SummarizerConfig{
		APIURL:    url,
		APIKey:    "test-key",
		Model:     "gpt-4",
		MaxTokens: 100,
	})
}

func TestSummarizeSuccess(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Narrative here. "}},
			},
		})
	}))
	defer server.Close()

	text, err := newTestClient(server.URL).Summarize(context.Background(), "prompt body", "en")
	require.NoError(t, err)
	assert.Equal(t, "Narrative here.", text)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "prompt body", captured.Messages[1].Content)
	assert.Equal(t, "gpt-4", captured.Model)
}

func TestSummarizeNonDefaultLocaleAddsInstruction(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Summarize(context.Background(), "prompt", "th")
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[1].Content, `"th" locale`)
}

func TestSummarizeNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Summarize(context.Background(), "prompt", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestSummarizeMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Summarize(context.Background(), "prompt", "en")
	require.Error(t, err)
}

func TestSummarizeEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Summarize(context.Background(), "prompt", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestSummarizeHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect and
		// cancel the request context; otherwise the deferred Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := newTestClient(server.URL).Summarize(ctx, "prompt", "en")
	require.Error(t, err)
}

func TestSummarizeRequiresModel(t *testing.T) {
	client := NewClient(config.SummarizerConfig{APIURL: "http://127.0.0.1:0"})
	_, err := client.Summarize(context.Background(), "prompt", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}
