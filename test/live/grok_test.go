package live

import (
	"strings"
	"testing"
)

func TestGrok_Availability(t *testing.T) {
	// newGrok runs the availability probe and skips when no endpoint
	// answers, so reaching this point means the probe succeeded.
	p := newGrok(t)

	t.Logf("grok endpoint in use: %s", p.BaseURL())
}

func TestGrok_Complete(t *testing.T) {
	p := newGrok(t)

	resp := complete(t, p, capitalRequest(""))

	if !strings.Contains(resp.Reply(), "Paris") {
		t.Errorf("reply does not mention Paris: %q", resp.Reply())
	}
}

func TestGrok_ListModels(t *testing.T) {
	p := newGrok(t)

	models, err := p.ListModels(liveContext(t))
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) == 0 {
		t.Error("expected at least one model")
	}
}
