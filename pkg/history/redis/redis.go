// Package redis provides a Redis implementation of history.Store.
// Exchanges are stored as JSON values under per-ID keys, with list-based
// indexes for newest-first retrieval. An optional TTL expires exchanges.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkraev/llmprobe/pkg/history"
)

const (
	keyPrefix = "llmprobe:exchange:"
	indexKey  = "llmprobe:index"
)

// Config holds Redis connection and behavior settings.
type Config struct {
	// Addr is the Redis server address (default: "localhost:6379").
	Addr string

	// Password authenticates against the server when non-empty.
	Password string

	// DB selects the Redis logical database.
	DB int

	// TTL expires stored exchanges after the given duration. Zero means
	// no expiry.
	TTL time.Duration
}

// Store is a Redis-backed history.Store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ history.Store = (*Store)(nil)

// New creates a new Redis store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client, ttl: cfg.TTL}, nil
}

// Save persists an exchange. The ID is pushed onto the global index and a
// per-provider index so List stays newest first without scanning keys.
func (s *Store) Save(ctx context.Context, ex *history.Exchange) error {
	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshaling exchange: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+ex.ID, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("storing exchange: %w", err)
	}
	if !ok {
		return history.ErrConflict
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, indexKey, ex.ID)
	if ex.Provider != "" {
		pipe.LPush(ctx, providerIndexKey(ex.Provider), ex.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("indexing exchange: %w", err)
	}

	return nil
}

// Get retrieves an exchange by ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Exchange, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching exchange: %w", err)
	}

	var ex history.Exchange
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("unmarshaling exchange: %w", err)
	}
	return &ex, nil
}

// List returns exchanges newest first, optionally filtered by provider.
// IDs whose value has expired are skipped.
func (s *Store) List(ctx context.Context, opts history.ListOptions) ([]*history.Exchange, error) {
	key := indexKey
	if opts.Provider != "" {
		key = providerIndexKey(opts.Provider)
	}

	limit := history.ClampLimit(opts.Limit)

	ids, err := s.client.LRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	exchanges := []*history.Exchange{}
	for _, id := range ids {
		ex, err := s.Get(ctx, id)
		if errors.Is(err, history.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}

	return exchanges, nil
}

// Clear removes all exchanges and indexes.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting exchange: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning exchanges: %w", err)
	}

	iter = s.client.Scan(ctx, 0, indexKey+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting index: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning indexes: %w", err)
	}

	return nil
}

// HealthCheck verifies the Redis connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func providerIndexKey(provider string) string {
	return indexKey + ":" + provider
}
