package tokens

import (
	"testing"

	"github.com/mkraev/llmprobe/pkg/api"
)

func TestCountText(t *testing.T) {
	c, err := NewCounter("gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewCounter failed: %v", err)
	}

	if got := c.CountText(""); got != 0 {
		t.Errorf("empty text = %d tokens, want 0", got)
	}

	got := c.CountText("What is the capital of France?")
	if got < 5 || got > 12 {
		t.Errorf("token count = %d, expected a single-digit count for a short sentence", got)
	}
}

func TestCountText_UnknownModelFallsBack(t *testing.T) {
	c, err := NewCounter("Vikhrmodels/QVikhr-3-4B-Instruction")
	if err != nil {
		t.Fatalf("NewCounter must fall back for unknown models: %v", err)
	}

	if got := c.CountText("hello world"); got == 0 {
		t.Error("fallback encoding produced zero tokens")
	}
}

func TestCountMessages(t *testing.T) {
	c, err := NewCounter("gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewCounter failed: %v", err)
	}

	messages := []api.ChatMessage{
		{Role: api.RoleSystem, Content: "You are a helpful assistant."},
		{Role: api.RoleUser, Content: "What is the capital of France?"},
	}

	got := c.CountMessages(messages)
	sum := c.CountText("You are a helpful assistant.") + c.CountText("What is the capital of France?")

	// Framing overhead must be counted on top of the raw content tokens.
	if got <= sum {
		t.Errorf("CountMessages = %d, want more than raw content count %d", got, sum)
	}
}
