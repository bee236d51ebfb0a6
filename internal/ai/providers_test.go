package ai

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/pkg/apperr"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	var got claudeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"button.submit"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(&config.AIConfig{
		AnthropicAPIKey:  "sk-ant",
		AnthropicBaseURL: srv.URL + "/",
		RequestTimeout:   5 * time.Second,
	}, zaptest.NewLogger(t))

	text, err := p.Complete(context.Background(), entity.CompletionRequest{
		Model:       "claude-test",
		MaxTokens:   100,
		Temperature: 0.3,
		Prompt:      "suggest a selector",
	})
	require.NoError(t, err)

	assert.Equal(t, "button.submit", text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "suggest a selector", got.Messages[0].Content[0].Text)
}

func TestAnthropicProvider_CompleteWithImage(t *testing.T) {
	var got claudeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"type\":\"done\"}"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(&config.AIConfig{AnthropicAPIKey: "k", AnthropicBaseURL: srv.URL}, zaptest.NewLogger(t))

	text, err := p.CompleteWithImage(context.Background(), entity.CompletionRequest{Model: "m", MaxTokens: 10, Prompt: "next?"}, "aW1n")
	require.NoError(t, err)

	assert.Equal(t, `{"type":"done"}`, text)
	require.Len(t, got.Messages[0].Content, 2)
	image := got.Messages[0].Content[0]
	require.NotNil(t, image.Source)
	assert.Equal(t, "base64", image.Source.Type)
	assert.Equal(t, "image/png", image.Source.MediaType)
	assert.Equal(t, "aW1n", image.Source.Data)
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(&config.AIConfig{AnthropicAPIKey: "k", AnthropicBaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.Complete(context.Background(), entity.CompletionRequest{Model: "m", MaxTokens: 10, Prompt: "p"})
	require.Error(t, err)

	assert.Equal(t, apperr.CodeAIError, apperr.CodeOf(err))
	assert.ErrorContains(t, err, "429")
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-test",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"logprobs": null,
				"message": {"role": "assistant", "content": "{\"satisfied\":true,\"reason\":\"edge visible\"}", "refusal": null}
			}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&config.AIConfig{OpenAIAPIKey: "sk-openai", OpenAIBaseURL: srv.URL}, zaptest.NewLogger(t))

	text, err := p.CompleteWithImage(context.Background(), entity.CompletionRequest{
		Model:       "gpt-test",
		MaxTokens:   2000,
		Temperature: 0.3,
		Prompt:      "is there an edge?",
	}, "aW1n")
	require.NoError(t, err)

	assert.Equal(t, `{"satisfied":true,"reason":"edge visible"}`, text)
	assert.Equal(t, "gpt-test", got["model"])
	assert.EqualValues(t, 2000, got["max_completion_tokens"])

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)

	content, ok := messages[0].(map[string]any)["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 2)

	imagePart := content[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	assert.Equal(t, "data:image/png;base64,aW1n", imagePart["image_url"].(map[string]any)["url"])
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&config.AIConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.Complete(context.Background(), entity.CompletionRequest{Model: "m", MaxTokens: 10, Prompt: "p"})
	require.Error(t, err)

	assert.Equal(t, apperr.CodeAIError, apperr.CodeOf(err))
	assert.Equal(t, 1, calls)
}
