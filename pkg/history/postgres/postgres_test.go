package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/history"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if testing.Short() {
		t.Skip("short mode, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("llmprobe_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func makeTestExchange(id string) *history.Exchange {
	return &history.Exchange{
		ID:       id,
		Provider: "openai",
		Model:    "test-model",
		Messages: []api.ChatMessage{
			{Role: api.RoleUser, Content: "What is the capital of France?"},
		},
		Reply:        "The capital of France is Paris.",
		FinishReason: "stop",
		Usage:        &api.Usage{PromptTokens: 7, CompletionTokens: 8, TotalTokens: 15},
		Latency:      420 * time.Millisecond,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestPostgres_SaveAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	ex := makeTestExchange(fmt.Sprintf("ex_pg_%d", time.Now().UnixNano()))
	if err := store.Save(ctx, ex); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, ex.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Provider != "openai" {
		t.Errorf("provider = %q", got.Provider)
	}
	if got.Reply != ex.Reply {
		t.Errorf("reply = %q, want %q", got.Reply, ex.Reply)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "What is the capital of France?" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Usage == nil || got.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", got.Usage)
	}
	if got.Latency != 420*time.Millisecond {
		t.Errorf("latency = %v", got.Latency)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Get(context.Background(), "ex_nonexistent")
	if !errors.Is(err, history.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_DuplicateSave(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	ex := makeTestExchange(fmt.Sprintf("ex_dup_%d", time.Now().UnixNano()))
	store.Save(ctx, ex)

	err := store.Save(ctx, ex)
	if !errors.Is(err, history.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestPostgres_ListAndClear(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	ts := time.Now().UnixNano()

	first := makeTestExchange(fmt.Sprintf("ex_list_a_%d", ts))
	first.CreatedAt = base
	second := makeTestExchange(fmt.Sprintf("ex_list_b_%d", ts))
	second.Provider = "grok"
	second.CreatedAt = base.Add(time.Second)

	store.Save(ctx, first)
	store.Save(ctx, second)

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != second.ID {
		t.Errorf("newest first: got %s", all[0].ID)
	}

	grok, err := store.List(ctx, history.ListOptions{Provider: "grok"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(grok) != 1 || grok[0].ID != second.ID {
		t.Errorf("provider filter = %+v", grok)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	empty, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len = %d after Clear, want 0", len(empty))
	}
}

func TestPostgres_HealthCheck(t *testing.T) {
	store := setupTestDB(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
