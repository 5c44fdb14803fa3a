package provider

import (
	"context"

	"github.com/mkraev/llmprobe/pkg/api"
)

// Provider abstracts a chat-completion backend. Implementations must be
// safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "grok", "local").
	Name() string

	// DefaultModel returns the model used when a request leaves Model empty.
	DefaultModel() string

	// Complete performs a single non-streaming chat completion.
	Complete(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)

	// Stream performs a streaming chat completion. The returned channel
	// receives Event values and is closed by the provider when the stream
	// completes or errors.
	Stream(ctx context.Context, req *api.ChatRequest) (<-chan Event, error)

	// ListModels returns the models served by the backend.
	ListModels(ctx context.Context) ([]api.Model, error)

	// Ping probes the backend for availability. A nil return means the
	// endpoint answered; an unavailable error means it could not be reached.
	Ping(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// EventType classifies a streaming event.
type EventType int

const (
	EventTextDelta    EventType = iota // Incremental text content
	EventToolCallDelta                 // Incremental tool call arguments
	EventToolCallDone                  // Tool call fully assembled
	EventDone                          // Stream finished
	EventError                         // Stream error
)

// Event is a single streaming event from the backend.
type Event struct {
	// Type indicates what kind of event this is.
	Type EventType

	// Delta contains incremental text or argument data. For EventToolCallDone
	// it holds the complete argument string.
	Delta string

	// ToolCallIndex identifies which tool call this event relates to.
	ToolCallIndex int

	// ToolCallID is the identifier for the tool call.
	ToolCallID string

	// FunctionName is the function name (populated on the first tool call
	// event and on EventToolCallDone).
	FunctionName string

	// FinishReason is populated on EventDone when the backend reported one.
	FinishReason string

	// Usage is populated on the final event when the backend reported usage.
	Usage *api.Usage

	// Err is populated if the stream encountered an error.
	Err error
}
