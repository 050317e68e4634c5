// ABOUTME: Markdown-to-Telegram-HTML rendering for model replies
// ABOUTME: Converts via goldmark, then reduces to Telegram's supported tag set

package telegram

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

// headingRe matches the heading tags goldmark emits; Telegram has no
// heading tags, so they are downgraded to bold.
var headingRe = regexp.MustCompile(`</?h[1-6][^>]*>`)

// blockReplacer strips or rewrites block-level tags Telegram rejects.
var blockReplacer = strings.NewReplacer(
	"<p>", "",
	"</p>", "\n",
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
	"<ul>", "",
	"</ul>", "",
	"<ol>", "",
	"</ol>", "",
	"<li>", "• ",
	"</li>", "\n",
	"<hr>", "\n",
	"<hr/>", "\n",
	"<hr />", "\n",
)

// RenderHTML converts a Markdown reply into HTML constrained to the tags
// Telegram accepts. The model is free to emit arbitrary Markdown; anything
// Telegram cannot represent is flattened rather than dropped.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}

	html := buf.String()
	html = headingRe.ReplaceAllStringFunc(html, func(tag string) string {
		if strings.HasPrefix(tag, "</") {
			return "</b>\n"
		}
		return "<b>"
	})
	html = blockReplacer.Replace(html)
	return strings.TrimSpace(html), nil
}
