package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cost"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
)

var defaultArtifactPaths = []string{"images.#.url", "video.url", "audio.url", "audio_file.url", "image.url", "output"}

var defaultTextPaths = []string{"text", "output.text"}

// HTTPProvider calls a JSON REST generation service that accepts
// POST <BaseURL>/<endpoint> and answers with the generated artifact URLs.
type HTTPProvider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// gjson paths tried in order; defaults cover the common fal-style layouts.
	ArtifactPaths []string
	TextPaths     []string
	CostPath      string

	MaxAttempts uint
	RetryDelay  time.Duration
}

// statusError is a non-2xx answer from the service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func (p *HTTPProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	body, err := p.buildBody(req)
	if err != nil {
		return nil, err
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Model
	}
	url := strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := p.RetryDelay
	if delay == 0 {
		delay = time.Second
	}

	var (
		respBody []byte
		header   http.Header
	)
	err = retry.Do(func() error {
		var callErr error
		respBody, header, callErr = p.post(ctx, url, body)
		return callErr
	},
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(delay),
		retry.MaxDelay(30*time.Second),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			vlog.Warn("retrying provider call", "model", req.Model, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return p.parse(respBody, header)
}

func (p *HTTPProvider) post(ctx context.Context, url string, body []byte) ([]byte, http.Header, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Key "+p.APIKey)
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &statusError{code: resp.StatusCode, body: truncate(string(respBody), 300)}
	}
	return respBody, resp.Header, nil
}

func (p *HTTPProvider) buildBody(req Request) ([]byte, error) {
	payload := map[string]any{}
	for k, v := range req.Params {
		payload[k] = v
	}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	if len(req.Inputs) > 0 {
		urls := make([]string, 0, len(req.Inputs))
		for _, in := range req.Inputs {
			u, err := inputURL(in)
			if err != nil {
				return nil, err
			}
			urls = append(urls, u)
		}
		payload["input_url"] = urls[0]
		payload["input_urls"] = urls
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return body, nil
}

// parse extracts artifacts, text and cost from a 2xx answer. The call was
// billed, so a response without usable output is still returned with its
// cost alongside the error.
func (p *HTTPProvider) parse(body []byte, header http.Header) (*Response, error) {
	resp := &Response{}
	if c, ok := cost.FromHeader(header.Get("x-cost")); ok {
		resp.Cost, resp.HasCost = c, true
	}
	if !gjson.ValidBytes(body) {
		return resp, fmt.Errorf("provider returned invalid JSON")
	}

	paths := p.ArtifactPaths
	if len(paths) == 0 {
		paths = defaultArtifactPaths
	}
	for _, path := range paths {
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			continue
		}
		if res.IsArray() {
			for _, item := range res.Array() {
				if s := item.String(); s != "" {
					resp.Artifacts = append(resp.Artifacts, s)
				}
			}
		} else if s := res.String(); s != "" && res.Type == gjson.String {
			resp.Artifacts = append(resp.Artifacts, s)
		}
		if len(resp.Artifacts) > 0 {
			break
		}
	}

	textPaths := p.TextPaths
	if len(textPaths) == 0 {
		textPaths = defaultTextPaths
	}
	for _, path := range textPaths {
		if res := gjson.GetBytes(body, path); res.Exists() && res.Type == gjson.String {
			resp.Text = res.String()
			break
		}
	}

	if !resp.HasCost {
		costPath := p.CostPath
		if costPath == "" {
			costPath = "cost"
		}
		if res := gjson.GetBytes(body, costPath); res.Exists() && res.Type == gjson.Number {
			resp.Cost, resp.HasCost = res.Float(), true
		}
	}

	for _, path := range []string{"video.duration", "audio.duration", "duration"} {
		if res := gjson.GetBytes(body, path); res.Type == gjson.Number {
			resp.Seconds = res.Float()
			break
		}
	}

	if raw, ok := gjson.ParseBytes(body).Value().(map[string]any); ok {
		resp.Raw = raw
	}

	if len(resp.Artifacts) == 0 && resp.Text == "" {
		return resp, fmt.Errorf("provider response has no artifacts")
	}
	return resp, nil
}

// inputURL passes remote references through and inlines local files as
// data URIs.
func inputURL(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("reading input %s: %w", ref, err)
	}
	mt := mime.TypeByExtension(filepath.Ext(ref))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
