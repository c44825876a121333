package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_JSONTruncation(t *testing.T) {
	env := OK("extract_text", "ok", map[string]any{
		"text": strings.Repeat("a", 5000),
	})

	out := env.JSON(100)
	assert.True(t, strings.HasSuffix(out, "...<truncated>"))
	assert.LessOrEqual(t, len(out), 100+len("...<truncated>"))

	full := env.JSON(0)
	assert.False(t, strings.HasSuffix(full, "...<truncated>"))
	var decoded Envelope
	require.NoError(t, json.Unmarshal([]byte(full), &decoded))
	assert.Equal(t, "extract_text", decoded.Action)
}

func TestEnvelope_StripBinary(t *testing.T) {
	env := OK("take_screenshot", "ok", map[string]any{
		"base64_png": strings.Repeat("x", 1000),
		"path":       "/tmp/shot.png",
	})

	stripped := env.StripBinary()
	assert.NotContains(t, stripped.Data, "base64_png")
	assert.Equal(t, "/tmp/shot.png", stripped.Data["path"])
	assert.NotEmpty(t, stripped.Data["note"])

	// Original is untouched.
	assert.Contains(t, env.Data, "base64_png")
}

func TestEnvelope_StripBinaryWithoutPayload(t *testing.T) {
	env := OK("click_element", "ok", map[string]any{"url": "https://example.com"})
	assert.Equal(t, env, env.StripBinary())
}

func TestFail_Fields(t *testing.T) {
	env := Fail("click_element", "failed", ErrTimeout, fmt.Errorf("boom"), "try again")

	assert.False(t, env.Success)
	assert.Equal(t, ErrTimeout, env.ErrorType)
	assert.Equal(t, "boom", env.Error)
	assert.Equal(t, "try again", env.Suggestion)
}

func TestIsTimeoutErr(t *testing.T) {
	assert.True(t, IsTimeoutErr(fmt.Errorf("Timeout 5000ms exceeded")))
	assert.False(t, IsTimeoutErr(fmt.Errorf("element is not attached")))
	assert.False(t, IsTimeoutErr(nil))
}

func TestVisibleText(t *testing.T) {
	html := `<html><head><script>var x=1;</script><style>.a{}</style></head>
	<body><h1>Корзина</h1><p>Товар   добавлен</p><script>track()</script></body></html>`

	text := VisibleText(html, 200)
	assert.Equal(t, "Корзина Товар добавлен", text)

	capped := VisibleText(html, 7)
	assert.True(t, strings.HasSuffix(capped, "..."))
}
