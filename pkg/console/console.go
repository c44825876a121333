// Package console renders the operator-facing action log and owns the single
// interactive input channel: the destructive-action confirmation prompt.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/avbelov/webpilot/pkg/browser"
)

// Color palette shared by all console output.
var (
	accentColor  = lipgloss.Color("#7AA2F7")
	successColor = lipgloss.Color("#9ECE6A")
	warnColor    = lipgloss.Color("#E0AF68")
	mutedColor   = lipgloss.Color("#565F89")
	textColor    = lipgloss.Color("#C0CAF5")
)

var (
	headerStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	iterationStyle = lipgloss.NewStyle().Foreground(mutedColor).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(textColor)
	toolStyle      = lipgloss.NewStyle().Foreground(accentColor)
	successStyle   = lipgloss.NewStyle().Foreground(successColor)
	warnStyle      = lipgloss.NewStyle().Foreground(warnColor)
	detailStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	promptStyle    = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
)

const (
	assistantTextLimit = 800
	paramValueLimit    = 40
	paramLineLimit     = 160
	domAnswerLimit     = 400
)

// Console writes the audit trail to out and reads confirmations from in.
type Console struct {
	out io.Writer
	in  *bufio.Reader
}

// New builds a console over the given streams.
func New(out io.Writer, in io.Reader) *Console {
	return &Console{out: out, in: bufio.NewReader(in)}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// TaskHeader prints the task once at the start of a run.
func (c *Console) TaskHeader(task string) {
	c.println(headerStyle.Render("You: ") + assistantStyle.Render(task))
}

// Iteration marks the start of a loop iteration.
func (c *Console) Iteration(n, max int) {
	c.println("")
	c.println(iterationStyle.Render(fmt.Sprintf("==== Итерация %d/%d ====", n, max)))
}

// AssistantText surfaces the model's free text, truncated for readability.
func (c *Console) AssistantText(text string) {
	shown := strings.TrimSpace(text)
	if shown == "" {
		return
	}
	if len(shown) > assistantTextLimit {
		shown = shown[:assistantTextLimit] + "...<truncated>"
	}
	c.println("")
	c.println(assistantStyle.Render("Assistant: " + shown))
}

// ToolCall prints one compact line per tool invocation.
func (c *Console) ToolCall(name string, params map[string]any) {
	c.println("")
	c.println(toolStyle.Render(fmt.Sprintf("🛠 Using tool: %s(%s)", name, formatParams(params))))
}

// ToolResult prints the envelope outcome with a status marker, plus a detail
// line for the actions where one value is worth surfacing.
func (c *Console) ToolResult(env browser.Envelope) {
	if env.Success {
		c.println(successStyle.Render(fmt.Sprintf("✅ %s: %s", env.Action, env.Message)))
	} else {
		kind := ""
		if env.ErrorType != "" {
			kind = fmt.Sprintf(" [%s]", env.ErrorType)
		}
		c.println(warnStyle.Render(fmt.Sprintf("⚠️ %s%s: %s", env.Action, kind, env.Message)))
		if env.Suggestion != "" {
			c.println(detailStyle.Render("   hint: " + env.Suggestion))
		}
	}

	var extras []string
	if url, ok := env.Data["url"].(string); ok && url != "" && env.Action == "navigate_url" {
		extras = append(extras, "url="+url)
	}
	if path, ok := env.Data["path"].(string); ok && path != "" && env.Action == "take_screenshot" {
		extras = append(extras, "path="+path)
	}
	if answer, ok := env.Data["answer"].(string); ok && answer != "" && env.Action == "query_dom" {
		answer = strings.TrimSpace(answer)
		if len(answer) > domAnswerLimit {
			answer = answer[:domAnswerLimit-3] + "…"
		}
		extras = append(extras, "DOM answer: "+answer)
	}
	if len(extras) > 0 {
		c.println(detailStyle.Render("   " + strings.Join(extras, " | ")))
	}
}

// Finished reports the terminal outcome of the run.
func (c *Console) Finished(reason, summary string) {
	c.println("")
	c.println(headerStyle.Render("=== " + reason + " ==="))
	if summary != "" {
		c.println(assistantStyle.Render(summary))
	}
}

// Notice prints a standalone informational line.
func (c *Console) Notice(msg string) {
	c.println(detailStyle.Render(msg))
}

// affirmatives are the answers accepted as a yes at the confirmation prompt.
var affirmatives = map[string]bool{
	"y":   true,
	"yes": true,
	"д":   true,
	"да":  true,
}

// Confirm blocks until the operator answers the y/N prompt. Anything other
// than an explicit yes counts as no; there is no timeout and no default yes.
func (c *Console) Confirm(prompt string) bool {
	fmt.Fprint(c.out, promptStyle.Render("⚠️ "+prompt+" (y/N): "))
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	return affirmatives[strings.ToLower(strings.TrimSpace(line))]
}

// WaitForEnter blocks until the operator presses Enter (manual-login flow).
func (c *Console) WaitForEnter(prompt string) {
	fmt.Fprint(c.out, promptStyle.Render(prompt))
	_, _ = c.in.ReadString('\n')
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprintf("%#v", params[k])
		if len(v) > paramValueLimit {
			v = v[:paramValueLimit-3] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	line := strings.Join(parts, ", ")
	if len(line) > paramLineLimit {
		line = line[:paramLineLimit-1] + "…"
	}
	return line
}
