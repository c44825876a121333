package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the content block variants.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one content block inside a turn. Exactly the fields for its Type
// are meaningful; the rest stay zero.
type Block struct {
	Type BlockType `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	// BlockToolResult (ToolUseID is shared with BlockToolUse)
	Content string `json:"content,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool-invocation block.
func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Type: BlockToolUse, ToolUseID: id, ToolName: name, ToolInput: input}
}

// ToolResultBlock builds a tool-result block carrying the serialized envelope.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one ordered turn of the conversation.
type Message struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"blocks"`
}

// UserText builds a user turn with a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Blocks: []Block{TextBlock(text)}}
}

// AssistantText builds an assistant turn with a single text block.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []Block{TextBlock(text)}}
}

// HasToolUse reports whether the turn issues at least one tool invocation.
func (m Message) HasToolUse() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// IsToolResult reports whether the turn consists purely of tool results.
// Such a turn is only valid immediately after an assistant turn that issued
// the matching invocations.
func (m Message) IsToolResult() bool {
	if len(m.Blocks) == 0 {
		return false
	}
	for _, b := range m.Blocks {
		if b.Type != BlockToolResult {
			return false
		}
	}
	return true
}

// JoinedText concatenates the turn's text blocks.
func (m Message) JoinedText() string {
	var parts []string
	for _, b := range m.Blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
