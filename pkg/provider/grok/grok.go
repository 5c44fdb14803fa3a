// Package grok adapts the shared openaicompat client to the Grok/X.AI API.
//
// The API key comes from GROK_API_KEY and the base URL from GROK_API_BASE.
// When no explicit base URL is configured, a set of known endpoints is
// probed in order and the first reachable one is used. Requests are retried
// with escalating per-attempt timeouts because the public endpoints are
// noticeably less stable than OpenAI's.
package grok

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
	"github.com/mkraev/llmprobe/pkg/provider/openaicompat"
)

// Environment variables consumed by FromEnv.
const (
	EnvAPIKey  = "GROK_API_KEY"
	EnvAPIBase = "GROK_API_BASE"
)

// DefaultBaseURL is the primary X.AI endpoint.
const DefaultBaseURL = "https://api.x.ai/v1"

// DefaultModel is used when a request leaves the model empty.
const DefaultModel = "grok-2-latest"

// alternativeBaseURLs are probed in order when no explicit base URL is
// configured. The Groq endpoint is kept as a fallback because it serves
// an OpenAI-compatible surface for the same model family.
var alternativeBaseURLs = []string{
	DefaultBaseURL,
	"https://api.groq.com/openai/v1",
}

// defaultRetryTimeouts escalate per attempt: a request that times out
// quickly is retried with more patience before giving up.
var defaultRetryTimeouts = []time.Duration{
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
}

// Config holds the settings for a Grok provider.
type Config struct {
	APIKey  string
	BaseURL string // empty: probe alternativeBaseURLs
	Model   string // default: DefaultModel
	Timeout time.Duration
	// RetryTimeouts overrides the escalating attempt timeouts. Nil means
	// defaultRetryTimeouts; an explicit empty slice disables retry.
	RetryTimeouts []time.Duration
	// ProbeTimeout bounds each availability probe (default 5s).
	ProbeTimeout time.Duration
}

// Provider implements provider.Provider for Grok/X.AI.
type Provider struct {
	cfg          Config
	alternatives []string

	mu     sync.Mutex
	client *openaicompat.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Grok provider with the given configuration.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("grok: APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RetryTimeouts == nil {
		cfg.RetryTimeouts = defaultRetryTimeouts
	}

	var alternatives []string
	base := cfg.BaseURL
	if base == "" {
		base = alternativeBaseURLs[0]
		alternatives = alternativeBaseURLs
	}

	p := &Provider{
		cfg:          cfg,
		alternatives: alternatives,
	}
	p.client = p.newClient(base)

	return p, nil
}

// FromEnv creates a Grok provider from environment variables. A missing
// GROK_API_KEY yields an error wrapping provider.ErrMissingCredential.
// GROK_API_BASE, when set, pins the base URL and disables endpoint
// fallback.
func FromEnv() (*Provider, error) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", provider.ErrMissingCredential, EnvAPIKey)
	}
	return New(Config{
		APIKey:  key,
		BaseURL: strings.TrimSpace(os.Getenv(EnvAPIBase)),
	})
}

func (p *Provider) newClient(base string) *openaicompat.Client {
	return openaicompat.NewClient(openaicompat.Config{
		BaseURL:       base,
		APIKey:        p.cfg.APIKey,
		Timeout:       p.cfg.Timeout,
		RetryTimeouts: p.cfg.RetryTimeouts,
		PingTimeout:   p.cfg.ProbeTimeout,
	})
}

func (p *Provider) currentClient() *openaicompat.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "grok" }

// DefaultModel returns the model used for requests that leave Model empty.
func (p *Provider) DefaultModel() string { return p.cfg.Model }

// BaseURL returns the base URL currently in use.
func (p *Provider) BaseURL() string {
	return p.currentClient().BaseURL()
}

// CheckAvailability probes the configured endpoint. With a pinned base URL
// the probe result is final. Without one, the alternative endpoints are
// tried in order and the provider switches to the first one that answers;
// the error of the last attempt is returned when none do.
func (p *Provider) CheckAvailability(ctx context.Context) error {
	err := p.currentClient().Ping(ctx)
	if err == nil || len(p.alternatives) == 0 {
		return err
	}

	for _, base := range p.alternatives {
		candidate := p.newClient(base)
		if pingErr := candidate.Ping(ctx); pingErr == nil {
			p.mu.Lock()
			p.client.Close()
			p.client = candidate
			p.mu.Unlock()
			return nil
		} else {
			err = pingErr
		}
		candidate.Close()
	}

	return err
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	return p.currentClient().Complete(ctx, p.withDefaults(req))
}

// Stream performs a streaming chat completion.
func (p *Provider) Stream(ctx context.Context, req *api.ChatRequest) (<-chan provider.Event, error) {
	return p.currentClient().Stream(ctx, p.withDefaults(req))
}

// ListModels returns the models served by the endpoint.
func (p *Provider) ListModels(ctx context.Context) ([]api.Model, error) {
	return p.currentClient().ListModels(ctx)
}

// Ping probes the current endpoint without endpoint fallback.
func (p *Provider) Ping(ctx context.Context) error {
	return p.currentClient().Ping(ctx)
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return p.currentClient().Close()
}

func (p *Provider) withDefaults(req *api.ChatRequest) *api.ChatRequest {
	if req == nil || req.Model != "" {
		return req
	}
	reqCopy := *req
	reqCopy.Model = p.cfg.Model
	return &reqCopy
}
