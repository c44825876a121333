// Package llm defines the completion-service boundary the agent core depends
// on: an ordered conversation of content blocks goes in, ordered text and
// tool-invocation blocks plus a stop reason come out.
//
// The core programs only against this shape. Concrete transports live in the
// subpackages (anthropic, openai) and are selected at startup.
package llm

import "context"

// Request is one completion call: model, system prompt, tool schema and the
// ordered conversation, with output bounded by MaxTokens.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// Response carries the assistant's ordered content blocks and the reason the
// model stopped.
type Response struct {
	Blocks     []Block
	StopReason StopReason
}

// StopReason reports why the model ended its turn.
type StopReason string

const (
	// StopEndTurn means the model finished naturally with no pending tool call.
	StopEndTurn StopReason = "end_turn"

	// StopToolUse means the model is waiting for tool results.
	StopToolUse StopReason = "tool_use"

	// StopMaxTokens means output was truncated by the token budget.
	StopMaxTokens StopReason = "max_tokens"
)

// ToolDefinition describes one tool in the schema advertised to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Provider is implemented by each completion-service transport.
type Provider interface {
	// Complete sends one request and returns the full structured response.
	// The agent loop is strictly sequential; at most one call is
	// outstanding at a time.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Model returns the model identifier this provider is configured for.
	Model() string
}
