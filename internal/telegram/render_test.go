package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML_Paragraphs(t *testing.T) {
	html, err := RenderHTML("Hello there.\n\nSecond thought.")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.\n\nSecond thought.", html)
}

func TestRenderHTML_Emphasis(t *testing.T) {
	html, err := RenderHTML("stay **strong** and *calm*")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>strong</strong>")
	assert.Contains(t, html, "<em>calm</em>")
}

func TestRenderHTML_Lists(t *testing.T) {
	html, err := RenderHTML("- breathe\n- stretch")
	require.NoError(t, err)
	assert.Contains(t, html, "• breathe")
	assert.Contains(t, html, "• stretch")
	assert.NotContains(t, html, "<li>")
	assert.NotContains(t, html, "<ul>")
}

func TestRenderHTML_HeadingsBecomeBold(t *testing.T) {
	html, err := RenderHTML("# Morning routine")
	require.NoError(t, err)
	assert.Contains(t, html, "<b>Morning routine</b>")
	assert.NotContains(t, html, "<h1>")
}

func TestRenderHTML_Code(t *testing.T) {
	html, err := RenderHTML("try `sleep 8h`")
	require.NoError(t, err)
	assert.Contains(t, html, "<code>sleep 8h</code>")
}

func TestRenderHTML_PlainTextPassesThrough(t *testing.T) {
	html, err := RenderHTML("just words with an emoji 🌱")
	require.NoError(t, err)
	assert.Equal(t, "just words with an emoji 🌱", html)
}
