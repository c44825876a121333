package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvocation_CoercesNumbers(t *testing.T) {
	t.Run("json float id", func(t *testing.T) {
		inv, err := ParseInvocation("c1", "click_element", map[string]any{"element_id": float64(3)})
		require.NoError(t, err)
		assert.Equal(t, ClickElementParams{ElementID: 3}, inv.Params)
	})

	t.Run("string id", func(t *testing.T) {
		inv, err := ParseInvocation("c1", "click_element", map[string]any{"element_id": "5"})
		require.NoError(t, err)
		assert.Equal(t, ClickElementParams{ElementID: 5}, inv.Params)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		_, err := ParseInvocation("c1", "click_element", map[string]any{"element_id": "корзина"})
		assert.Error(t, err)
	})
}

func TestParseInvocation_RequiredFields(t *testing.T) {
	_, err := ParseInvocation("c1", "type_text", map[string]any{"element_id": float64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text")

	_, err = ParseInvocation("c1", "navigate_url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestParseInvocation_Defaults(t *testing.T) {
	inv, err := ParseInvocation("c1", "scroll_page", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, ScrollPageParams{Direction: "down", Amount: 600}, inv.Params)

	inv, err = ParseInvocation("c1", "switch_to_page", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, SwitchToPageParams{Index: -1}, inv.Params)

	inv, err = ParseInvocation("c1", "wait_for_element", map[string]any{"query": "Готово"})
	require.NoError(t, err)
	assert.Equal(t, WaitForElementParams{Query: "Готово", TimeoutSec: 5}, inv.Params)
}

func TestParseInvocation_AnalyzeFormats(t *testing.T) {
	inv, err := ParseInvocation("c1", "analyze_page", map[string]any{"detailed": true})
	require.NoError(t, err)
	assert.Equal(t, AnalyzePageParams{Detailed: true}, inv.Params)

	// Older schema spelling is still accepted.
	inv, err = ParseInvocation("c1", "analyze_page", map[string]any{"response_format": "detailed"})
	require.NoError(t, err)
	assert.Equal(t, AnalyzePageParams{Detailed: true}, inv.Params)

	inv, err = ParseInvocation("c1", "analyze_page", nil)
	require.NoError(t, err)
	assert.Equal(t, AnalyzePageParams{Detailed: false}, inv.Params)
}

func TestParseInvocation_UnknownTool(t *testing.T) {
	_, err := ParseInvocation("c1", "frobnicate", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestParseInvocation_CoversActionSurface(t *testing.T) {
	// Every advertised tool must parse with a minimal valid input.
	inputs := map[string]map[string]any{
		"analyze_page":           {},
		"click_element":          {"element_id": float64(0)},
		"type_text":              {"element_id": float64(0), "text": "x"},
		"click_and_type":         {"element_id": float64(0), "text": "x"},
		"click_text":             {"text": "x"},
		"navigate_url":           {"url": "https://example.com"},
		"take_screenshot":        {},
		"wait_for_element":       {"query": "x"},
		"search_elements":        {"query": "x"},
		"validate_task_complete": {},
		"query_dom":              {"query": "x"},
		"finish_task":            {},
		"scroll_page":            {},
		"switch_to_page":         {},
		"go_back":                {},
		"extract_text":           {"selector": "h1"},
		"collect_elements":       {"selector": ".a"},
		"switch_frame":           {"reset": true},
		"close_modal":            {},
	}

	defs := toolDefinitions()
	require.Len(t, defs, len(inputs))
	for _, def := range defs {
		input, ok := inputs[def.Name]
		require.True(t, ok, "tool %q has no parse coverage", def.Name)
		inv, err := ParseInvocation("c1", def.Name, input)
		require.NoError(t, err, "tool %q", def.Name)
		assert.NotNil(t, inv.Params)
	}
}
