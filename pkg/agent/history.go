package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/avbelov/webpilot/pkg/llm"
	"github.com/avbelov/webpilot/pkg/llm/tokenizer"
	"github.com/avbelov/webpilot/pkg/logging"
)

// minHistoryWindow is the floor on verbatim retention; below this the model
// loses the immediate call-and-response structure it is reasoning about.
const minHistoryWindow = 3

const summaryMaxTokens = 200

// summaryInstruction is the fixed system prompt for the summarization call.
// Preserving user prohibitions verbatim is the one hard requirement; losing
// "оплату не производи" to compression would let the agent do exactly what
// the user forbade.
const summaryInstruction = "Сделай краткое резюме предыдущих шагов агента (до 120 слов). " +
	"ОБЯЗАТЕЛЬНО сохрани все ограничения и запреты пользователя " +
	"(например: 'оплату не производи', 'ничего не удаляй', 'не оформляй заказ'). " +
	"Кратко перечисли ключевые действия, состояние корзины/логина и ВСЕ важные запреты. " +
	"Пиши на русском языке."

// summaryPrefix marks the synthetic assistant turn that carries the rolling
// summary.
const summaryPrefix = "[Сводка]\n"

// History bounds the conversation fed to the completion service. It keeps
// the first turn (the task) and a recent window verbatim, and compresses
// everything between them into a single rolling summary turn.
type History struct {
	provider llm.Provider
	log      *logging.Logger
	tok      *tokenizer.Tokenizer
	window   int
	summary  string
}

// NewHistory builds a history manager. window is the number of recent turns
// kept verbatim; values below the floor are raised to it.
func NewHistory(provider llm.Provider, window int, log *logging.Logger) *History {
	if window < minHistoryWindow {
		window = minHistoryWindow
	}
	tok, err := tokenizer.New()
	if err != nil {
		log.Warnf("tokenizer unavailable, history token counts disabled: %v", err)
	}
	return &History{provider: provider, log: log, tok: tok, window: window}
}

// Summary returns the current rolling summary text.
func (h *History) Summary() string { return h.summary }

// Apply windows the conversation, summarizing turns that fall out of the
// verbatim window. The first turn is never touched; the summary turn
// replaces any prior one rather than accumulating.
func (h *History) Apply(ctx context.Context, msgs []llm.Message) []llm.Message {
	if h.tok != nil {
		h.log.Debugf("history: %d turns, ~%d tokens", len(msgs), h.tok.CountMessages(msgs))
	}
	if len(msgs) <= h.window+1 {
		return msgs
	}

	first := msgs[0]
	rest := msgs[1:]
	if len(rest) <= h.window {
		return msgs
	}

	older := rest[:len(rest)-h.window]
	recent := rest[len(rest)-h.window:]

	// Strip a previous summary turn from the material being re-summarized;
	// its content is passed separately as the prior summary.
	compact := make([]llm.Message, 0, len(older))
	for _, m := range older {
		if m.Role == llm.RoleAssistant && strings.HasPrefix(m.JoinedText(), summaryPrefix) {
			continue
		}
		compact = append(compact, m)
	}

	h.summary = h.summarize(ctx, compact)

	pruned := make([]llm.Message, 0, len(recent)+2)
	pruned = append(pruned, first)
	pruned = append(pruned, llm.AssistantText(summaryPrefix+h.summary))
	pruned = append(pruned, recent...)

	return repairDanglingResults(pruned)
}

// summarize asks the completion service for a fresh summary of the older
// turns. Any failure keeps the prior summary; dropping constraints is worse
// than staleness.
func (h *History) summarize(ctx context.Context, older []llm.Message) string {
	raw, err := json.Marshal(older)
	if err != nil {
		h.log.Warnf("summarize: marshal history: %v", err)
		return h.summary
	}

	resp, err := h.provider.Complete(ctx, llm.Request{
		System:      summaryInstruction,
		MaxTokens:   summaryMaxTokens,
		Temperature: 0,
		Messages: []llm.Message{
			llm.AssistantText("Предыдущая сводка:\n" + h.summary),
			llm.UserText("История:\n" + string(raw)),
		},
	})
	if err != nil {
		h.log.Warnf("summarize: completion failed, keeping prior summary: %v", err)
		return h.summary
	}

	var parts []string
	for _, b := range resp.Blocks {
		if b.Type == llm.BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	fresh := strings.TrimSpace(strings.Join(parts, "\n"))
	if fresh == "" {
		return h.summary
	}
	return fresh
}

// repairDanglingResults drops tool-result turns whose issuing tool-use turn
// was windowed away. A tool result without its matching tool use upsets the
// completion service's message validation.
func repairDanglingResults(msgs []llm.Message) []llm.Message {
	cleaned := make([]llm.Message, 0, len(msgs))
	var prev *llm.Message

	for i := range msgs {
		msg := msgs[i]
		if msg.IsToolResult() {
			if prev == nil || prev.Role != llm.RoleAssistant || !prev.HasToolUse() {
				continue
			}
		}
		cleaned = append(cleaned, msg)
		prev = &cleaned[len(cleaned)-1]
	}
	return cleaned
}
