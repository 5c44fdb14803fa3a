// Package postgres provides a PostgreSQL implementation of history.Store.
// It uses pgx/v5 for connection pooling and JSONB for message storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/history"
)

// Store is a PostgreSQL-backed history.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ history.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Save persists a completed exchange.
func (s *Store) Save(ctx context.Context, ex *history.Exchange) error {
	messagesJSON, err := json.Marshal(ex.Messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	var promptTokens, completionTokens, totalTokens int
	if ex.Usage != nil {
		promptTokens = ex.Usage.PromptTokens
		completionTokens = ex.Usage.CompletionTokens
		totalTokens = ex.Usage.TotalTokens
	}

	createdAt := ex.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO exchanges (
			id, provider, model, messages, reply, finish_reason,
			usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
			latency_ns, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		ex.ID, ex.Provider, ex.Model, messagesJSON, ex.Reply, nullString(ex.FinishReason),
		promptTokens, completionTokens, totalTokens,
		ex.Latency.Nanoseconds(), createdAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return history.ErrConflict
		}
		return fmt.Errorf("inserting exchange: %w", err)
	}

	return nil
}

// Get retrieves an exchange by ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Exchange, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider, model, messages, reply, finish_reason,
		       usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
		       latency_ns, created_at
		FROM exchanges
		WHERE id = $1
	`, id)

	ex, err := scanExchange(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exchange: %w", err)
	}
	return ex, nil
}

// List returns exchanges newest first, optionally filtered by provider.
func (s *Store) List(ctx context.Context, opts history.ListOptions) ([]*history.Exchange, error) {
	query := `
		SELECT id, provider, model, messages, reply, finish_reason,
		       usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
		       latency_ns, created_at
		FROM exchanges
	`
	args := []any{}

	if opts.Provider != "" {
		query += " WHERE provider = $1"
		args = append(args, opts.Provider)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", history.ClampLimit(opts.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := []*history.Exchange{}
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exchanges: %w", err)
	}

	return exchanges, nil
}

// Clear removes all exchanges.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM exchanges"); err != nil {
		return fmt.Errorf("clearing exchanges: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanExchange reads one exchange row. Works for both QueryRow and Rows.
func scanExchange(row pgx.Row) (*history.Exchange, error) {
	var ex history.Exchange
	var messagesJSON []byte
	var finishReason *string
	var promptTokens, completionTokens, totalTokens int
	var latencyNs int64

	err := row.Scan(
		&ex.ID, &ex.Provider, &ex.Model, &messagesJSON, &ex.Reply, &finishReason,
		&promptTokens, &completionTokens, &totalTokens,
		&latencyNs, &ex.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messagesJSON, &ex.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}
	if finishReason != nil {
		ex.FinishReason = *finishReason
	}
	if totalTokens > 0 || promptTokens > 0 || completionTokens > 0 {
		ex.Usage = &api.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		}
	}
	ex.Latency = time.Duration(latencyNs)

	return &ex, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
