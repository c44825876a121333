package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avbelov/webpilot/pkg/browser"
	"github.com/avbelov/webpilot/pkg/llm"
	"github.com/avbelov/webpilot/pkg/logging"
)

const (
	agentMaxTokens    = 1200
	finalSummaryLimit = 800
)

// completionPhrases is the exact whitelist of affirmative completion
// statements that auto-terminate the run. Hedged or speculative phrasing
// ("может указывать на то, что...") deliberately does not match; this is a
// literal substring check, not a semantic classifier.
var completionPhrases = []string{
	"задача выполнена",
	"задача полностью выполнена",
	"задача целиком выполнена",
	"задача решена",
	"цель достигнута",
	"цель задачи достигнута",
}

func isExplicitCompletion(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, phrase := range completionPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// Executor is the action surface the loop dispatches to. *browser.Executor
// is the production implementation; tests substitute fakes.
type Executor interface {
	AnalyzePage(detailed bool) browser.Envelope
	ClickElement(id int) browser.Envelope
	TypeText(id int, text string, pressEnter bool) browser.Envelope
	ClickAndType(id int, text string) browser.Envelope
	ClickByText(text string, exact bool) browser.Envelope
	NavigateURL(url string) browser.Envelope
	GoBack() browser.Envelope
	TakeScreenshot(fullPage bool) browser.Envelope
	WaitForElement(text string, timeoutSec float64) browser.Envelope
	SearchElements(query string) browser.Envelope
	ValidateTaskComplete(expectation string) browser.Envelope
	QueryDOM(ctx context.Context, question string) browser.Envelope
	ScrollPage(direction string, amount float64) browser.Envelope
	SwitchToPage(index int) browser.Envelope
	ExtractText(selector string) browser.Envelope
	CollectElements(selector string, limit int) browser.Envelope
	SwitchFrame(selector string, index int, reset bool) browser.Envelope
	CloseModal() browser.Envelope
	ElementByID(id int) (browser.DistilledElement, bool)
}

// Reporter is the operator console surface the loop writes its audit trail
// to, and the single channel for confirmation prompts.
type Reporter interface {
	TaskHeader(task string)
	Iteration(n, max int)
	AssistantText(text string)
	ToolCall(name string, params map[string]any)
	ToolResult(env browser.Envelope)
	Finished(reason, summary string)
	Notice(msg string)
	Confirm(prompt string) bool
}

// Options are the run parameters the loop itself consumes.
type Options struct {
	Task          string
	MaxIterations int
	HistoryWindow int
	Temperature   float64
	Confirm       bool
}

// Outcome is the terminal result of one run. Exhausting the iteration budget
// is an expected outcome, not an error.
type Outcome struct {
	Completed  bool
	Reason     string
	Summary    string
	Iterations int
}

// Agent orchestrates one task end-to-end: completion calls alternating with
// action execution, gated for destructive clicks, with bounded history.
type Agent struct {
	opts     Options
	provider llm.Provider
	executor Executor
	gate     *Gate
	history  *History
	reporter Reporter
	log      *logging.Logger
}

// New wires an agent. The provider is shared with the history manager's
// summarization calls.
func New(opts Options, provider llm.Provider, executor Executor, reporter Reporter, log *logging.Logger) *Agent {
	return &Agent{
		opts:     opts,
		provider: provider,
		executor: executor,
		gate:     NewGate(opts.Confirm),
		history:  NewHistory(provider, opts.HistoryWindow, log),
		reporter: reporter,
		log:      log,
	}
}

// Run drives the decide→act→observe cycle until a terminal signal or the
// iteration budget runs out. Action-level failures never abort the loop;
// only a completion-service transport failure does.
func (a *Agent) Run(ctx context.Context) (Outcome, error) {
	msgs := []llm.Message{llm.UserText(a.opts.Task)}
	a.reporter.TaskHeader(a.opts.Task)
	a.log.Infof("task started: %s", a.opts.Task)

	for iteration := 1; iteration <= a.opts.MaxIterations; iteration++ {
		a.reporter.Iteration(iteration, a.opts.MaxIterations)

		resp, err := a.provider.Complete(ctx, llm.Request{
			System:      systemPrompt,
			Messages:    msgs,
			Tools:       toolDefinitions(),
			MaxTokens:   agentMaxTokens,
			Temperature: a.opts.Temperature,
		})
		if err != nil {
			return Outcome{Iterations: iteration}, fmt.Errorf("completion call: %w", err)
		}

		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Blocks: resp.Blocks})

		var toolResults []llm.Block
		for _, block := range resp.Blocks {
			switch block.Type {
			case llm.BlockText:
				a.reporter.AssistantText(block.Text)
				if isExplicitCompletion(block.Text) {
					summary := truncate(strings.TrimSpace(block.Text), finalSummaryLimit)
					a.reporter.Finished("ЗАДАЧА ЗАВЕРШЕНА", summary)
					a.log.Infof("run finished on explicit completion text at iteration %d", iteration)
					return Outcome{Completed: true, Reason: "explicit completion", Summary: summary, Iterations: iteration}, nil
				}

			case llm.BlockToolUse:
				env, done := a.runTool(ctx, block)
				a.reporter.ToolResult(env)
				a.log.Infof("tool result: %s", env.JSON(0))
				if done {
					summary, _ := env.Data["summary"].(string)
					a.reporter.Finished("ЗАДАЧА ЗАВЕРШЕНА", summary)
					a.log.Infof("run finished via finish_task at iteration %d", iteration)
					return Outcome{Completed: true, Reason: "finish_task", Summary: summary, Iterations: iteration}, nil
				}
				toolResults = append(toolResults,
					llm.ToolResultBlock(block.ToolUseID, env.StripBinary().JSON(browser.HistoryJSONLimit), !env.Success))
			}
		}

		if len(toolResults) > 0 {
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Blocks: toolResults})
			msgs = a.history.Apply(ctx, msgs)
			continue
		}

		if resp.StopReason == llm.StopEndTurn {
			a.reporter.Notice("Агент завершил разговор без явного итога.")
			a.log.Infof("run ended on end_turn with no tool calls at iteration %d", iteration)
			return Outcome{Reason: "conversation ended", Iterations: iteration}, nil
		}

		msgs = a.history.Apply(ctx, msgs)
	}

	a.reporter.Finished("ЗАДАЧА НЕ ЗАВЕРШЕНА", "Достигнут лимит итераций.")
	a.log.Infof("run stopped: max iterations (%d) reached", a.opts.MaxIterations)
	return Outcome{Reason: "not completed", Iterations: a.opts.MaxIterations}, nil
}

// runTool parses, gates, and dispatches one tool-use block. done reports a
// finish_task invocation, which always terminates the run.
func (a *Agent) runTool(ctx context.Context, block llm.Block) (env browser.Envelope, done bool) {
	var input map[string]any
	if len(block.ToolInput) > 0 {
		if err := json.Unmarshal(block.ToolInput, &input); err != nil {
			input = nil
		}
	}
	a.reporter.ToolCall(block.ToolName, input)
	a.log.Infof("tool call: %s %s", block.ToolName, string(block.ToolInput))

	inv, err := ParseInvocation(block.ToolUseID, block.ToolName, input)
	if err != nil {
		return browser.Fail(block.ToolName, "Invalid tool invocation", browser.ErrContext, err,
			"Check the tool name and its parameter schema."), false
	}

	if label, required := a.gate.RequiresConfirmation(inv, a.executor.ElementByID); required {
		prompt := fmt.Sprintf("Потенциально рискованное действие: %s (элемент: %q). Выполнить?", inv.Action, label)
		if !a.reporter.Confirm(prompt) {
			a.log.Infof("destructive action declined by operator: %s %q", inv.Action, label)
			return browser.Fail(string(inv.Action), "Action cancelled by user", browser.ErrUserCancelled, nil, "").
				WithData(map[string]any{"params": inv.Raw}), false
		}
		a.log.Infof("destructive action confirmed by operator: %s %q", inv.Action, label)
	}

	return a.dispatch(ctx, inv)
}

// dispatch maps a typed invocation onto the executor. The switch is
// exhaustive over ActionParams variants.
func (a *Agent) dispatch(ctx context.Context, inv Invocation) (browser.Envelope, bool) {
	switch p := inv.Params.(type) {
	case AnalyzePageParams:
		return a.executor.AnalyzePage(p.Detailed), false
	case ClickElementParams:
		return a.executor.ClickElement(p.ElementID), false
	case TypeTextParams:
		return a.executor.TypeText(p.ElementID, p.Text, p.PressEnter), false
	case ClickAndTypeParams:
		return a.executor.ClickAndType(p.ElementID, p.Text), false
	case ClickTextParams:
		return a.executor.ClickByText(p.Text, p.Exact), false
	case NavigateURLParams:
		return a.executor.NavigateURL(p.URL), false
	case TakeScreenshotParams:
		return a.executor.TakeScreenshot(p.FullPage), false
	case WaitForElementParams:
		return a.executor.WaitForElement(p.Query, p.TimeoutSec), false
	case SearchElementsParams:
		return a.executor.SearchElements(p.Query), false
	case ValidateTaskCompleteParams:
		return a.executor.ValidateTaskComplete(p.Hint), false
	case QueryDOMParams:
		return a.executor.QueryDOM(ctx, p.Query), false
	case FinishTaskParams:
		return browser.OK(string(ActionFinishTask), "Task finished",
			map[string]any{"summary": p.Summary}), true
	case ScrollPageParams:
		return a.executor.ScrollPage(p.Direction, p.Amount), false
	case SwitchToPageParams:
		return a.executor.SwitchToPage(p.Index), false
	case GoBackParams:
		return a.executor.GoBack(), false
	case ExtractTextParams:
		return a.executor.ExtractText(p.Selector), false
	case CollectElementsParams:
		return a.executor.CollectElements(p.Selector, p.Limit), false
	case SwitchFrameParams:
		return a.executor.SwitchFrame(p.Selector, p.Index, p.Reset), false
	case CloseModalParams:
		return a.executor.CloseModal(), false
	default:
		return browser.Fail(string(inv.Action), "Unhandled action", browser.ErrContext, nil, ""), false
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...<truncated>"
}
