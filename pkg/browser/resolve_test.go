package browser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzed(t *testing.T, d *fakeDriver, items ...any) *Executor {
	t.Helper()
	d.evalResults = append([][]any{items}, d.evalResults...)
	x := newTestExecutor(t, d)
	require.True(t, x.AnalyzePage(false).Success)
	return x
}

func TestClickElement_MarkerPath(t *testing.T) {
	d := newFakeDriver()
	x := analyzed(t, d, rawEl("g1-0", "button", "Добавить в корзину"))
	d.markers["g1-0"] = 1

	env := x.ClickElement(0)

	require.True(t, env.Success)
	assert.Equal(t, []string{"g1-0"}, d.clickedMarkers)
	assert.Empty(t, d.clickedTexts)
	assert.NotContains(t, env.Message, "via")
	assert.Equal(t, 1, d.syncCalls)
}

func TestClickElement_RefreshedIDPath(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{rawEl("g2-0", "button", "Добавить в корзину")}}
	x := analyzed(t, d, rawEl("g1-0", "button", "Добавить в корзину"))
	// g1-0 vanished with the re-render; the replacement carries g2-0.
	d.markers["g2-0"] = 1

	env := x.ClickElement(0)

	require.True(t, env.Success)
	assert.Equal(t, []string{"g2-0"}, d.clickedMarkers)
	assert.Empty(t, d.clickedTexts)
	assert.Contains(t, env.Message, "via refreshed agent-id")
}

func TestClickElement_TextFallbackPath(t *testing.T) {
	d := newFakeDriver()
	// Fresh distillation has no text-equal replacement.
	d.evalResults = [][]any{{rawEl("g2-0", "button", "Что-то другое")}}
	x := analyzed(t, d, rawEl("g1-0", "button", "Добавить в корзину"))

	env := x.ClickElement(0)

	require.True(t, env.Success)
	assert.Empty(t, d.clickedMarkers)
	assert.Equal(t, []string{"Добавить в корзину"}, d.clickedTexts)
	assert.Contains(t, env.Message, "via text fallback")
}

func TestClickElement_EmptyTextNoFallback(t *testing.T) {
	d := newFakeDriver()
	x := analyzed(t, d, rawEl("g1-0", "button", ""))
	evalCallsAfterAnalyze := d.evalCalls

	env := x.ClickElement(0)

	require.False(t, env.Success)
	assert.Equal(t, ErrElementNotFound, env.ErrorType)
	assert.NotEmpty(t, env.Suggestion)
	assert.Empty(t, d.clickedTexts)
	assert.Empty(t, d.clickedMarkers)
	assert.Equal(t, evalCallsAfterAnalyze, d.evalCalls, "no re-distillation for a textless element")
}

func TestClickElement_TimeoutFallsBackToText(t *testing.T) {
	d := newFakeDriver()
	x := analyzed(t, d, rawEl("g1-0", "button", "Оформить"))
	d.markers["g1-0"] = 1
	d.clickMarkerErr["g1-0"] = fmt.Errorf("timeout 5000ms exceeded while waiting for element")

	env := x.ClickElement(0)

	require.True(t, env.Success)
	assert.Equal(t, []string{"Оформить"}, d.clickedTexts)
	assert.Contains(t, env.Message, "via text fallback")
}

func TestClickElement_AllStrategiesFail(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{}}
	x := analyzed(t, d, rawEl("g1-0", "button", "Оформить"))
	d.clickTextErr = fmt.Errorf("timeout 5000ms exceeded")

	env := x.ClickElement(0)

	require.False(t, env.Success)
	assert.Equal(t, ErrTimeout, env.ErrorType)
	assert.NotEmpty(t, env.Suggestion)
}

func TestClickElement_UnknownID(t *testing.T) {
	d := newFakeDriver()
	x := newTestExecutor(t, d)

	env := x.ClickElement(7)

	require.False(t, env.Success)
	assert.Equal(t, ErrElementNotFound, env.ErrorType)
	assert.Contains(t, env.Suggestion, "analyze_page")
}
