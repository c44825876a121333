// Package anthropic implements the llm.Provider boundary on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/avbelov/webpilot/pkg/llm"
)

// DefaultMaxTokens bounds the response when a request does not set its own.
const DefaultMaxTokens = 1200

// Provider talks to the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
	model  string
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model identifier used for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable; a missing key is a startup error,
// never a mid-loop one.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (ANTHROPIC_API_KEY)")
	}

	p := &Provider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Complete sends one non-streaming Messages request and converts the result
// into provider-neutral content blocks.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    convertMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages request: %w", err)
	}

	resp := &llm.Response{StopReason: llm.StopReason(message.StopReason)}
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Blocks = append(resp.Blocks, llm.TextBlock(variant.Text))
		case anthropic.ToolUseBlock:
			input, merr := json.Marshal(variant.Input)
			if merr != nil {
				input = []byte("{}")
			}
			resp.Blocks = append(resp.Blocks, llm.ToolUseBlock(variant.ID, variant.Name, input))
		}
	}
	return resp, nil
}

// convertMessages maps provider-neutral turns onto Anthropic message params.
// Tool results become tool_result blocks inside user messages, which is the
// pairing shape the API requires.
func convertMessages(messages []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range msg.Blocks {
			switch b.Type {
			case llm.BlockText:
				if b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			case llm.BlockToolUse:
				var input map[string]any
				if err := json.Unmarshal(b.ToolInput, &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    b.ToolUseID,
						Name:  b.ToolName,
						Input: input,
					},
				})
			case llm.BlockToolResult:
				content := b.Content
				if content == "" {
					content = "[empty result]"
				}
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, content, b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch msg.Role {
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func convertTools(defs []llm.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var properties any
		if props, ok := def.InputSchema["properties"]; ok {
			properties = props
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: properties},
			},
		})
	}
	return out
}
