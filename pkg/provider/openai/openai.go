// Package openai adapts the shared openaicompat client to the OpenAI API.
// The API key comes from OPENAI_API_KEY; the base URL defaults to the
// public endpoint and can be overridden with OPENAI_API_BASE.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
	"github.com/mkraev/llmprobe/pkg/provider/openaicompat"
)

// Environment variables consumed by FromEnv.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvAPIBase = "OPENAI_API_BASE"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when a request leaves the model empty.
const DefaultModel = "gpt-4o-mini"

// Config holds the settings for an OpenAI provider.
type Config struct {
	APIKey  string
	BaseURL string        // default: DefaultBaseURL
	Model   string        // default: DefaultModel
	Timeout time.Duration // default: 120s
}

// Provider implements provider.Provider for the OpenAI API.
type Provider struct {
	cfg    Config
	client *openaicompat.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates an OpenAI provider with the given configuration.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: APIKey is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client := openaicompat.NewClient(openaicompat.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})

	return &Provider{cfg: cfg, client: client}, nil
}

// FromEnv creates an OpenAI provider from environment variables. A missing
// OPENAI_API_KEY yields an error wrapping provider.ErrMissingCredential.
func FromEnv() (*Provider, error) {
	cred, err := provider.CredentialFromEnv(EnvAPIKey, EnvAPIBase, DefaultBaseURL)
	if err != nil {
		return nil, err
	}
	return New(Config{APIKey: cred.APIKey, BaseURL: cred.BaseURL})
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "openai" }

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

// ListModels returns the models available to this API key.
func (p *Provider) ListModels(ctx context.Context) ([]api.Model, error) {
	return p.client.ListModels(ctx)
}

// Ping probes the endpoint for availability.
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
