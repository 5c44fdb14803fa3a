// Package local adapts the shared openaicompat client to a locally hosted
// inference server. No credential is required; the base URL defaults to
// http://localhost:8999 and can be overridden with LLMPROBE_LOCAL_URL.
package local

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
	"github.com/mkraev/llmprobe/pkg/provider/openaicompat"
)

// Environment variables consumed by FromEnv.
const (
	EnvBaseURL = "LLMPROBE_LOCAL_URL"
	EnvModel   = "LLMPROBE_LOCAL_MODEL"
)

// DefaultBaseURL is the conventional local inference server address.
const DefaultBaseURL = "http://localhost:8999"

// DefaultModel is the model the local server is expected to serve.
const DefaultModel = "Vikhrmodels/QVikhr-3-4B-Instruction"

// Config holds the settings for a local provider.
type Config struct {
	BaseURL string        // default: DefaultBaseURL
	Model   string        // default: DefaultModel
	Timeout time.Duration // default: 120s
}

// Provider implements provider.Provider for a local inference server.
type Provider struct {
	cfg    Config
	client *openaicompat.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a local provider with the given configuration.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client := openaicompat.NewClient(openaicompat.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})

	return &Provider{cfg: cfg, client: client}
}

// FromEnv creates a local provider from environment variables, falling back
// to the defaults when they are unset.
func FromEnv() *Provider {
	return New(Config{
		BaseURL: strings.TrimSpace(os.Getenv(EnvBaseURL)),
		Model:   strings.TrimSpace(os.Getenv(EnvModel)),
	})
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "local" }

// BaseURL returns the normalized backend base URL.
func (p *Provider) BaseURL() string { return p.client.BaseURL() }

// DefaultModel returns the model used for requests that leave Model empty.
func (p *Provider) DefaultModel() string { return p.cfg.Model }

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	return p.client.Complete(ctx, p.withDefaults(req))
}

// Stream performs a streaming chat completion.
func (p *Provider) Stream(ctx context.Context, req *api.ChatRequest) (<-chan provider.Event, error) {
	return p.client.Stream(ctx, p.withDefaults(req))
}

// ListModels returns the models served by the local server.
func (p *Provider) ListModels(ctx context.Context) ([]api.Model, error) {
	return p.client.ListModels(ctx)
}

// Ping probes the local server for availability.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) withDefaults(req *api.ChatRequest) *api.ChatRequest {
	if req == nil || req.Model != "" {
		return req
	}
	reqCopy := *req
	reqCopy.Model = p.cfg.Model
	return &reqCopy
}
