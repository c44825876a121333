// Package openai implements the llm.Provider boundary for OpenAI-compatible
// chat completion APIs. It exists so the agent can run against Azure, local
// gateways, or OpenAI itself; the primary transport is the anthropic package.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/avbelov/webpilot/pkg/llm"
)

// DefaultMaxTokens bounds the response when a request does not set its own.
const DefaultMaxTokens = 1200

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	client openai.Client
	model  string
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	model   string
	baseURL string
}

// WithModel sets the model identifier used for completions.
func WithModel(model string) ProviderOption {
	return func(c *providerConfig) {
		c.model = model
	}
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint
// (Azure, local gateway, etc.).
func WithBaseURL(baseURL string) ProviderOption {
	return func(c *providerConfig) {
		c.baseURL = baseURL
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required (OPENAI_API_KEY)")
	}

	cfg := providerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client: openai.NewClient(clientOpts...),
		model:  cfg.model,
	}, nil
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Complete sends one chat completion request and converts the first choice
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

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    convertMessages(req.System, req.Messages),
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := completion.Choices[0]
	resp := &llm.Response{StopReason: convertFinishReason(choice.FinishReason)}
	if choice.Message.Content != "" {
		resp.Blocks = append(resp.Blocks, llm.TextBlock(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		resp.Blocks = append(resp.Blocks,
			llm.ToolUseBlock(call.ID, call.Function.Name, []byte(call.Function.Arguments)))
	}
	return resp, nil
}

func convertFinishReason(reason string) llm.StopReason {
	switch reason {
	case "tool_calls":
		return llm.StopToolUse
	case "length":
		return llm.StopMaxTokens
	default:
		return llm.StopEndTurn
	}
}

// convertMessages flattens block-structured turns into the chat completion
// message shapes: tool uses become assistant tool_calls, tool results become
// role=tool messages keyed by call ID.
func convertMessages(system string, messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		if msg.Role == llm.RoleAssistant {
			text := msg.JoinedText()
			var toolCalls []openai.ChatCompletionMessageToolCallParam
			for _, b := range msg.Blocks {
				if b.Type != llm.BlockToolUse {
					continue
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: b.ToolUseID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      b.ToolName,
						Arguments: string(b.ToolInput),
					},
				})
			}
			if text == "" && len(toolCalls) == 0 {
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
			continue
		}

		// User turns: tool results are emitted as role=tool messages, any
		// remaining text as a plain user message.
		for _, b := range msg.Blocks {
			if b.Type == llm.BlockToolResult {
				content := b.Content
				if content == "" {
					content = "[empty result]"
				}
				out = append(out, openai.ToolMessage(content, b.ToolUseID))
			}
		}
		if text := msg.JoinedText(); text != "" {
			out = append(out, openai.UserMessage(text))
		}
	}
	return out
}

func convertTools(defs []llm.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema),
			},
		})
	}
	return out
}
