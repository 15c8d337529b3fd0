package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cost"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
)

// ChatProvider calls an OpenAI-compatible chat completions endpoint
// (OpenRouter by default). It serves text_to_text steps.
type ChatProvider struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *ChatProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	model := req.Endpoint
	if model == "" {
		model = req.Model
	}

	var messages []chatMessage
	if sp, ok := req.Params["system_prompt"].(string); ok && sp != "" {
		messages = append(messages, chatMessage{Role: "system", Content: sp})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		timeout := p.Timeout
		if timeout == 0 {
			timeout = 300 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	out := &Response{}
	if c, ok := cost.FromHeader(resp.Header.Get("x-openrouter-cost")); ok {
		out.Cost, out.HasCost = c, true
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return out, fmt.Errorf("parsing response: %w", err)
	}
	out.Raw = map[string]any{
		"prompt_tokens":     chatResp.Usage.PromptTokens,
		"completion_tokens": chatResp.Usage.CompletionTokens,
	}

	// Cost extraction: header > usage > 0+warn
	if !out.HasCost {
		if chatResp.Usage.PromptTokens > 0 {
			out.Cost = cost.FromUsage(model, cost.Usage{
				PromptTokens:     chatResp.Usage.PromptTokens,
				CompletionTokens: chatResp.Usage.CompletionTokens,
			})
			out.HasCost = out.Cost > 0
		} else {
			vlog.Warn("could not determine cost for step", "model", model)
		}
	}

	if len(chatResp.Choices) == 0 {
		return out, fmt.Errorf("empty choices in API response")
	}
	out.Text = chatResp.Choices[0].Message.Content
	return out, nil
}
