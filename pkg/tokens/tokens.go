// Package tokens estimates token counts for chat messages using the
// tiktoken BPE encodings. Counts are estimates: backends may tokenize
// differently, but cl100k_base is close enough for budgeting and for
// sanity-checking reported usage.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mkraev/llmprobe/pkg/api"
)

// fallbackEncoding is used for models tiktoken does not know, which
// includes most locally hosted and non-OpenAI models.
const fallbackEncoding = "cl100k_base"

// Per-message overhead in the OpenAI chat format: every message carries
// role and framing tokens, and the reply is primed with an assistant role.
const (
	tokensPerMessage = 4
	tokensPerReply   = 3
)

// Counter estimates token counts for a given model's encoding.
type Counter struct {
	encoder *tiktoken.Tiktoken
}

// NewCounter creates a Counter for the given model, falling back to the
// cl100k_base encoding when the model is unknown.
func NewCounter(model string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &Counter{encoder: enc}, nil
}

// CountText returns the token count of a plain string.
func (c *Counter) CountText(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// CountMessages estimates the prompt token count of a chat request's
// messages, including per-message framing overhead.
func (c *Counter) CountMessages(messages []api.ChatMessage) int {
	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage
		total += c.CountText(m.Role)
		total += c.CountText(m.Content)
		if m.Name != "" {
			total += c.CountText(m.Name)
		}
	}
	return total
}
