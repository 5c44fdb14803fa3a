// Package live provides tests against real provider endpoints.
//
// Every test degrades to a skip when its prerequisites are absent: a
// missing API key, an unreachable endpoint, or -short mode all skip
// rather than fail, so the suite is safe to run anywhere.
package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
	"github.com/mkraev/llmprobe/pkg/provider/grok"
	"github.com/mkraev/llmprobe/pkg/provider/local"
	"github.com/mkraev/llmprobe/pkg/provider/openai"
)

const liveTimeout = 60 * time.Second

// liveContext returns a context bounded for one live request.
func liveContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), liveTimeout)
	t.Cleanup(cancel)
	return ctx
}

// newOpenAI returns a connected OpenAI provider, skipping the test when
// OPENAI_API_KEY is not set.
func newOpenAI(t *testing.T) *openai.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode, skipping live tests")
	}

	p, err := openai.FromEnv()
	if err != nil {
		if errors.Is(err, provider.ErrMissingCredential) {
			t.Skipf("skipping: %v", err)
		}
		t.Fatalf("creating OpenAI provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// newGrok returns a connected Grok provider, skipping the test when
// GROK_API_KEY is not set or no endpoint is reachable. The availability
// probe runs before any completion is attempted.
func newGrok(t *testing.T) *grok.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode, skipping live tests")
	}

	p, err := grok.FromEnv()
	if err != nil {
		if errors.Is(err, provider.ErrMissingCredential) {
			t.Skipf("skipping: %v", err)
		}
		t.Fatalf("creating Grok provider: %v", err)
	}

	if err := p.CheckAvailability(liveContext(t)); err != nil {
		p.Close()
		t.Skipf("skipping: Grok endpoint unavailable: %v", err)
	}

	t.Cleanup(func() { p.Close() })
	return p
}

// newLocal returns a provider for the local inference server, skipping
// the test when the server is not running.
func newLocal(t *testing.T) *local.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode, skipping live tests")
	}

	p := local.FromEnv()
	if err := p.Ping(liveContext(t)); err != nil {
		p.Close()
		t.Skipf("skipping: local backend unavailable: %v", err)
	}

	t.Cleanup(func() { p.Close() })
	return p
}

// capitalRequest builds the canonical probe request.
func capitalRequest(model string) *api.ChatRequest {
	return &api.ChatRequest{
		Model: model,
		Messages: []api.ChatMessage{
			{Role: api.RoleUser, Content: "What is the capital of France?"},
		},
	}
}

// complete runs one completion, skipping on transient unavailability and
// failing on anything else.
func complete(t *testing.T, p provider.Provider, req *api.ChatRequest) *api.ChatResponse {
	t.Helper()

	resp, err := p.Complete(liveContext(t), req)
	if err != nil {
		if api.IsUnavailable(err) {
			t.Skipf("skipping: %s became unavailable: %v", p.Name(), err)
		}
		t.Fatalf("%s completion failed: %v", p.Name(), err)
	}
	if resp.Reply() == "" {
		t.Fatalf("%s returned an empty reply", p.Name())
	}
	return resp
}
