package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
)

// toolCallBuffer tracks incremental tool call argument assembly across
// multiple SSE chunks for a single tool call index.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// ParseSSEStream reads Chat Completions SSE chunks from body, translates
// each chunk into provider events, and sends them on ch. The channel is NOT
// closed by this function; the caller is responsible for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)

	toolCalls := make(map[int]*toolCallBuffer)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// Lines without the data prefix are ignored (blank separators,
		// comments starting with ":").
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			return
		}

		var chunk api.ChatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		translateChunk(&chunk, toolCalls, ch)
	}

	if err := scanner.Err(); err != nil {
		// Cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		ch <- provider.Event{
			Type: provider.EventError,
			Err:  api.NewServerError("SSE stream read error: " + err.Error()),
		}
	}
}

// translateChunk converts a single chunk into zero or more events sent on
// the channel. The toolCalls map carries argument assembly state between
// chunks.
func translateChunk(chunk *api.ChatChunk, toolCalls map[int]*toolCallBuffer, ch chan<- provider.Event) {
	if len(chunk.Choices) == 0 {
		// Usage-only final chunk, sent with stream_options.include_usage.
		if chunk.Usage != nil {
			ch <- provider.Event{
				Type:  provider.EventDone,
				Usage: chunk.Usage,
			}
		}
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if choice.FinishReason != nil {
		reason := *choice.FinishReason

		if len(toolCalls) > 0 {
			flushToolCalls(toolCalls, ch)
		}

		done := provider.Event{
			Type:         provider.EventDone,
			FinishReason: reason,
		}
		if chunk.Usage != nil {
			done.Usage = chunk.Usage
		}
		ch <- done
		return
	}

	if len(delta.ToolCalls) > 0 {
		for _, tc := range delta.ToolCalls {
			buf, exists := toolCalls[tc.Index]
			if !exists {
				// First chunk for this index carries the id and function name.
				buf = &toolCallBuffer{id: tc.ID, name: tc.Function.Name}
				toolCalls[tc.Index] = buf
			}
			buf.args.WriteString(tc.Function.Arguments)

			ch <- provider.Event{
				Type:          provider.EventToolCallDelta,
				ToolCallIndex: tc.Index,
				ToolCallID:    buf.id,
				FunctionName:  buf.name,
				Delta:         tc.Function.Arguments,
			}
		}
		return
	}

	if delta.Content != nil && *delta.Content != "" {
		ch <- provider.Event{
			Type:  provider.EventTextDelta,
			Delta: *delta.Content,
		}
		return
	}

	// Role-only first chunk or an empty delta. Some backends send these;
	// nothing to emit.
}

// flushToolCalls emits EventToolCallDone for each buffered tool call and
// clears the buffer.
func flushToolCalls(toolCalls map[int]*toolCallBuffer, ch chan<- provider.Event) {
	for idx, buf := range toolCalls {
		ch <- provider.Event{
			Type:          provider.EventToolCallDone,
			ToolCallIndex: idx,
			ToolCallID:    buf.id,
			FunctionName:  buf.name,
			Delta:         buf.args.String(),
		}
	}
	for k := range toolCalls {
		delete(toolCalls, k)
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
