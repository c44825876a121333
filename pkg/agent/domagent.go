package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/avbelov/webpilot/pkg/llm"
)

const domAgentMaxTokens = 400

// domAgentSystem scopes the sub-agent strictly to the snapshot it is given.
const domAgentSystem = "Ты DOM-подагент. Тебе дают JSON со структурой страницы (URL, title, список элементов).\n" +
	"Отвечай кратко и точно на русском языке на вопросы о том, что сейчас видно пользователю.\n" +
	"Не придумывай элементы, которых нет в данных. Если чего-то не видно, так и скажи."

// DOMSubAgent answers single natural-language questions about a page
// snapshot. Stateless per call; it shares the main agent's provider but not
// its conversation.
type DOMSubAgent struct {
	provider llm.Provider
}

// NewDOMSubAgent builds the sub-agent over the given provider.
func NewDOMSubAgent(provider llm.Provider) *DOMSubAgent {
	return &DOMSubAgent{provider: provider}
}

// Answer asks the completion service to answer the question strictly from
// the serialized snapshot. Failures surface to the caller; the invoking
// query_dom action reports them, never swallows them.
func (d *DOMSubAgent) Answer(ctx context.Context, question, snapshot string) (string, error) {
	resp, err := d.provider.Complete(ctx, llm.Request{
		System:      domAgentSystem,
		MaxTokens:   domAgentMaxTokens,
		Temperature: 0,
		Messages: []llm.Message{
			{
				Role: llm.RoleUser,
				Blocks: []llm.Block{
					llm.TextBlock("JSON страницы:\n" + snapshot),
					llm.TextBlock("\nВопрос:\n" + question),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("dom sub-agent: %w", err)
	}

	var parts []string
	for _, b := range resp.Blocks {
		if b.Type == llm.BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	answer := strings.TrimSpace(strings.Join(parts, "\n"))
	if answer == "" {
		return "", fmt.Errorf("dom sub-agent returned no text")
	}
	return answer, nil
}
