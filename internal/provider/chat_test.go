package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatProviderMock(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-openrouter-cost", "0.05")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "a cinematic shot of a red fox"}},
			},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	p := &ChatProvider{Endpoint: ts.URL, APIKey: "secret", HTTPClient: ts.Client()}
	resp, err := p.Invoke(context.Background(), Request{
		Model:  "openai/gpt-4o-mini",
		Prompt: "a fox",
		Params: map[string]any{"system_prompt": "Expand the prompt."},
	})
	require.NoError(t, err)
	assert.Equal(t, "a cinematic shot of a red fox", resp.Text)
	assert.True(t, resp.HasCost)
	assert.InDelta(t, 0.05, resp.Cost, 1e-9)
	assert.Equal(t, 100, resp.Raw["prompt_tokens"])

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "a fox", got.Messages[1].Content)
}

func TestChatProviderCostFromUsage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
			"usage":   map[string]int{"prompt_tokens": 1_000_000, "completion_tokens": 0},
		})
	}))
	defer ts.Close()

	p := &ChatProvider{Endpoint: ts.URL, HTTPClient: ts.Client()}
	resp, err := p.Invoke(context.Background(), Request{Model: "openai/gpt-4o-mini", Prompt: "x"})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, resp.Cost, 1e-9)
}

func TestChatProviderErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := &ChatProvider{Endpoint: ts.URL, HTTPClient: ts.Client()}
	_, err := p.Invoke(context.Background(), Request{Model: "m", Prompt: "x"})
	assert.ErrorContains(t, err, "429")
}

func TestChatProviderEmptyChoicesKeepsCost(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-openrouter-cost", "0.02")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 0},
		})
	}))
	defer ts.Close()

	p := &ChatProvider{Endpoint: ts.URL, HTTPClient: ts.Client()}
	resp, err := p.Invoke(context.Background(), Request{Model: "openai/gpt-4o-mini", Prompt: "x"})
	assert.ErrorContains(t, err, "empty choices")
	require.NotNil(t, resp)
	assert.True(t, resp.HasCost)
	assert.InDelta(t, 0.02, resp.Cost, 1e-9)
	assert.Empty(t, resp.Text)
}
