// Package history defines the exchange history model and the Store
// interface its backends implement. An exchange records one completed
// chat-completion round trip: the request messages, the assistant reply,
// and the observed usage and latency.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
)

// ErrNotFound is returned when an exchange does not exist.
var ErrNotFound = errors.New("exchange not found")

// ErrConflict is returned when saving an exchange whose ID already exists.
var ErrConflict = errors.New("exchange already exists")

// Exchange records one completed chat-completion round trip.
type Exchange struct {
	ID           string            `json:"id"`
	Provider     string            `json:"provider"`
	Model        string            `json:"model"`
	Messages     []api.ChatMessage `json:"messages"`
	Reply        string            `json:"reply"`
	FinishReason string            `json:"finish_reason,omitempty"`
	Usage        *api.Usage        `json:"usage,omitempty"`
	Latency      time.Duration     `json:"latency_ns"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ListOptions filters and bounds a List call.
type ListOptions struct {
	Provider string // empty: all providers
	Limit    int    // <=0: backend default (20), capped at 100
}

// Store persists exchanges. Implementations must be safe for concurrent
// use.
type Store interface {
	// Save persists an exchange. Returns ErrConflict when the ID is
	// already present.
	Save(ctx context.Context, ex *Exchange) error

	// Get retrieves an exchange by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns exchanges newest first, filtered per opts.
	List(ctx context.Context, opts ListOptions) ([]*Exchange, error)

	// Clear removes all exchanges.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// ClampLimit applies the shared default and cap to a List limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
