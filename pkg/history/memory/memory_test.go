package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/history"
)

func makeExchange(id, provider string, at time.Time) *history.Exchange {
	return &history.Exchange{
		ID:       id,
		Provider: provider,
		Model:    "test-model",
		Messages: []api.ChatMessage{
			{Role: api.RoleUser, Content: "What is the capital of France?"},
		},
		Reply:        "Paris",
		FinishReason: "stop",
		Usage:        &api.Usage{PromptTokens: 7, CompletionTokens: 1, TotalTokens: 8},
		Latency:      350 * time.Millisecond,
		CreatedAt:    at,
	}
}

func TestSaveAndGet(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	ex := makeExchange("ex_1", "openai", time.Now())
	if err := store.Save(ctx, ex); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "ex_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Reply != "Paris" {
		t.Errorf("reply = %q, want Paris", got.Reply)
	}
	if got.Usage == nil || got.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v", got.Usage)
	}
}

func TestGetNotFound(t *testing.T) {
	store := New(0)

	_, err := store.Get(context.Background(), "ex_missing")
	if !errors.Is(err, history.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveDuplicate(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	ex := makeExchange("ex_dup", "openai", time.Now())
	store.Save(ctx, ex)

	if err := store.Save(ctx, ex); !errors.Is(err, history.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestListNewestFirstAndProviderFilter(t *testing.T) {
	store := New(0)
	ctx := context.Background()
	base := time.Now()

	store.Save(ctx, makeExchange("ex_a", "openai", base))
	store.Save(ctx, makeExchange("ex_b", "grok", base.Add(time.Second)))
	store.Save(ctx, makeExchange("ex_c", "openai", base.Add(2*time.Second)))

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != "ex_c" || all[2].ID != "ex_a" {
		t.Errorf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	grok, err := store.List(ctx, history.ListOptions{Provider: "grok"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(grok) != 1 || grok[0].ID != "ex_b" {
		t.Errorf("provider filter returned %+v", grok)
	}
}

func TestEviction(t *testing.T) {
	store := New(2)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		ex := makeExchange(fmt.Sprintf("ex_%d", i), "local", base.Add(time.Duration(i)*time.Second))
		if err := store.Save(ctx, ex); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	// Oldest entry must be gone.
	if _, err := store.Get(ctx, "ex_0"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("expected ex_0 evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "ex_2"); err != nil {
		t.Errorf("ex_2 should survive: %v", err)
	}
}

func TestClear(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	store.Save(ctx, makeExchange("ex_1", "openai", time.Now()))
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	got, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d after Clear, want 0", len(got))
	}
}
