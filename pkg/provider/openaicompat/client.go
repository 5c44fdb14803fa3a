package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
)

const (
	defaultTimeout     = 120 * time.Second
	defaultPingTimeout = 5 * time.Second
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the backend base URL, e.g. "https://api.x.ai/v1" or
	// "http://localhost:8999". A trailing "/v1" segment is accepted and
	// normalized away so both spellings address the same endpoints.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a single non-streaming request (default 120s).
	Timeout time.Duration

	// RetryTimeouts, when set, turns on retry for Complete: one attempt per
	// entry, each bounded by its timeout. Only transient errors are retried.
	RetryTimeouts []time.Duration

	// PingTimeout bounds the availability probe (default 5s).
	PingTimeout time.Duration
}

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Client for the given backend.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NormalizeBaseURL strips trailing slashes and a trailing "/v1" path
// segment. Endpoint paths always include the /v1 prefix themselves.
func NormalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	return base
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Complete performs a non-streaming chat completion. When RetryTimeouts is
// configured, transient failures are retried with escalating per-attempt
// timeouts; terminal errors (invalid request, authentication, not found)
// return immediately.
func (c *Client) Complete(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	if err := api.ValidateRequest(req); err != nil {
		return nil, err
	}

	reqCopy := *req
	reqCopy.Stream = false

	if len(c.cfg.RetryTimeouts) == 0 {
		return c.completeOnce(ctx, &reqCopy)
	}

	var lastErr error
	for i, timeout := range c.cfg.RetryTimeouts {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := c.completeOnce(attemptCtx, &reqCopy)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !api.IsRetryable(err) {
			return nil, err
		}
		if i < len(c.cfg.RetryTimeouts)-1 {
			slog.Warn("chat completion attempt failed, retrying with longer timeout",
				"attempt", i+1,
				"timeout", timeout.String(),
				"error", err.Error(),
			)
		}
	}

	return nil, lastErr
}

func (c *Client) completeOnce(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp api.ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return &chatResp, nil
}

// Stream performs a streaming chat completion. It returns a channel of
// events that is closed when the stream completes, errors, or the context
// is cancelled.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately outlast any fixed timeout. Lifecycle control
// relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req *api.ChatRequest) (<-chan provider.Event, error) {
	if err := api.ValidateRequest(req); err != nil {
		return nil, err
	}

	reqCopy := *req
	reqCopy.Stream = true
	if reqCopy.StreamOptions == nil {
		reqCopy.StreamOptions = &api.ChatStreamOptions{IncludeUsage: true}
	}

	body, err := json.Marshal(&reqCopy)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	// A client without timeout; the context controls the request lifetime.
	streamClient := &http.Client{
		Transport: c.httpClient.Transport,
	}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// ListModels queries GET /v1/models and returns the backend's model list.
func (c *Client) ListModels(ctx context.Context) ([]api.Model, error) {
	url := c.cfg.BaseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var modelsResp api.ModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}

	return modelsResp.Data, nil
}

// Ping probes the backend by listing models with a short timeout. A nil
// return means the endpoint answered. Authentication failures still count
// as reachable: the endpoint is up even if the key is rejected.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
	defer cancel()

	_, err := c.ListModels(pingCtx)
	if err == nil {
		return nil
	}
	if api.IsUnavailable(err) {
		return err
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
