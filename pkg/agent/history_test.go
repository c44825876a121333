package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avbelov/webpilot/pkg/llm"
	"github.com/avbelov/webpilot/pkg/logging"
)

const testConstraint = "ничего не удаляй"

// summarizingProvider mimics a summarization model: it echoes any user
// prohibition it can see in its input, which is exactly the behavior the
// history manager's plumbing must make possible.
type summarizingProvider struct {
	calls    int
	requests []llm.Request
	err      error
}

func (p *summarizingProvider) Model() string { return "test-model" }

func (p *summarizingProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.calls++
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}

	var input strings.Builder
	for _, m := range req.Messages {
		input.WriteString(m.JoinedText())
	}
	summary := fmt.Sprintf("Шаг %d: агент работает с каталогом.", p.calls)
	if strings.Contains(input.String(), testConstraint) {
		summary += " Запрет пользователя: " + testConstraint + "."
	}
	return &llm.Response{
		Blocks:     []llm.Block{llm.TextBlock(summary)},
		StopReason: llm.StopEndTurn,
	}, nil
}

func testLog(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log.Component("test")
}

func textTurn(role llm.Role, i int) llm.Message {
	return llm.Message{Role: role, Blocks: []llm.Block{llm.TextBlock(fmt.Sprintf("turn %d", i))}}
}

func TestHistory_Convergence(t *testing.T) {
	const window = 4
	const task = "купи футболку, но ничего не удаляй из корзины"

	provider := &summarizingProvider{}
	h := NewHistory(provider, window, testLog(t))

	msgs := []llm.Message{llm.UserText(task)}
	role := llm.RoleAssistant
	for i := 0; i < 30; i++ {
		msgs = append(msgs, textTurn(role, i))
		if role == llm.RoleAssistant {
			role = llm.RoleUser
		} else {
			role = llm.RoleAssistant
		}
		msgs = h.Apply(context.Background(), msgs)
		assert.LessOrEqual(t, len(msgs), 1+1+window)
	}

	require.Equal(t, 1+1+window, len(msgs))
	assert.Equal(t, task, msgs[0].JoinedText(), "original task stays verbatim")
	assert.True(t, strings.HasPrefix(msgs[1].JoinedText(), summaryPrefix))
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
}

func TestHistory_ConstraintSurvivesResummarization(t *testing.T) {
	provider := &summarizingProvider{}
	h := NewHistory(provider, 3, testLog(t))

	msgs := []llm.Message{
		llm.UserText("оформи заказ на сайте"),
		llm.UserText("и помни: " + testConstraint),
	}
	for i := 0; i < 20; i++ {
		msgs = append(msgs, textTurn(llm.RoleAssistant, i))
		msgs = h.Apply(context.Background(), msgs)
	}

	require.GreaterOrEqual(t, provider.calls, 3, "expected several re-summarization rounds")
	assert.Contains(t, h.Summary(), testConstraint)
	assert.Contains(t, msgs[1].JoinedText(), testConstraint)

	// Each round feeds the prior summary back in, which is what carries the
	// constraint once the original turn has left the window.
	last := provider.requests[len(provider.requests)-1]
	assert.Contains(t, last.Messages[0].JoinedText(), "Предыдущая сводка")
}

func TestHistory_SummarizeFailureKeepsPrior(t *testing.T) {
	provider := &summarizingProvider{}
	h := NewHistory(provider, 3, testLog(t))

	msgs := []llm.Message{llm.UserText(testConstraint)}
	for i := 0; i < 10; i++ {
		msgs = append(msgs, textTurn(llm.RoleAssistant, i))
		msgs = h.Apply(context.Background(), msgs)
	}
	prior := h.Summary()
	require.NotEmpty(t, prior)

	provider.err = fmt.Errorf("service unavailable")
	msgs = append(msgs, textTurn(llm.RoleAssistant, 99))
	h.Apply(context.Background(), msgs)

	assert.Equal(t, prior, h.Summary(), "failed summarization must not lose the prior summary")
}

func TestHistory_ShortConversationUntouched(t *testing.T) {
	provider := &summarizingProvider{}
	h := NewHistory(provider, 5, testLog(t))

	msgs := []llm.Message{
		llm.UserText("задача"),
		textTurn(llm.RoleAssistant, 1),
		textTurn(llm.RoleUser, 2),
	}
	out := h.Apply(context.Background(), msgs)

	assert.Equal(t, msgs, out)
	assert.Zero(t, provider.calls)
}

func TestHistory_WindowFloor(t *testing.T) {
	h := NewHistory(&summarizingProvider{}, 1, testLog(t))
	assert.Equal(t, minHistoryWindow, h.window)
}

func TestRepairDanglingResults(t *testing.T) {
	toolUse := llm.Message{Role: llm.RoleAssistant, Blocks: []llm.Block{
		llm.ToolUseBlock("call-1", "analyze_page", []byte(`{}`)),
	}}
	result := llm.Message{Role: llm.RoleUser, Blocks: []llm.Block{
		llm.ToolResultBlock("call-1", `{"success":true}`, false),
	}}
	plainAssistant := llm.AssistantText("смотрю на страницу")

	t.Run("paired result survives", func(t *testing.T) {
		out := repairDanglingResults([]llm.Message{toolUse, result})
		assert.Len(t, out, 2)
	})

	t.Run("dangling result after text turn is dropped", func(t *testing.T) {
		out := repairDanglingResults([]llm.Message{plainAssistant, result})
		require.Len(t, out, 1)
		assert.Equal(t, plainAssistant, out[0])
	})

	t.Run("leading result is dropped", func(t *testing.T) {
		out := repairDanglingResults([]llm.Message{result, plainAssistant})
		require.Len(t, out, 1)
		assert.Equal(t, plainAssistant, out[0])
	})
}
