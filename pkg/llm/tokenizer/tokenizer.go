// Package tokenizer provides token accounting for conversation budgeting.
package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/avbelov/webpilot/pkg/llm"
)

// perMessageOverhead approximates the per-turn framing cost of the chat format.
const perMessageOverhead = 4

// Tokenizer counts tokens with a cl100k_base encoding. Counts are used for
// logging and summarizer input budgeting, not for hard API limits, so an
// encoding mismatch with the active model is acceptable.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New creates a tokenizer with the cl100k_base encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load encoding: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessages returns the approximate token footprint of a conversation,
// including tool inputs and tool results.
func (t *Tokenizer) CountMessages(messages []llm.Message) int {
	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		for _, b := range msg.Blocks {
			switch b.Type {
			case llm.BlockText:
				total += t.Count(b.Text)
			case llm.BlockToolUse:
				total += t.Count(b.ToolName) + t.Count(string(b.ToolInput))
			case llm.BlockToolResult:
				total += t.Count(b.Content)
			}
		}
	}
	return total
}
