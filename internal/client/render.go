package client

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"pastelchat/internal/models"
)

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
	urlPattern = regexp.MustCompile(`https?://[^\s]+`)
)

// EscapeHTML replaces the five HTML-sensitive characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Linkify wraps bare http(s) URLs in anchors. Its input must already be escaped.
func Linkify(s string) string {
	return urlPattern.ReplaceAllString(s, `<a href="$0" target="_blank" rel="noopener">$0</a>`)
}

// FormatContent escapes, then linkifies, then turns newlines into <br>.
// The order matters: escaping first keeps message content from ever being
// interpreted as markup.
func FormatContent(s string) string {
	return strings.ReplaceAll(Linkify(EscapeHTML(s)), "\n", "<br>")
}

func speaker(role string) string {
	if role == models.RoleUser {
		return "You"
	}
	return "Assistant"
}

// RenderHTML produces the message list markup used by the web page.
func RenderHTML(history []models.ChatMessage) string {
	var b strings.Builder
	b.WriteString(`<div class="messages">` + "\n")
	for _, m := range history {
		class := "bot"
		if m.Role == models.RoleUser {
			class = "user"
		}
		fmt.Fprintf(&b, `<div class="msg %s"><div class="who">%s</div><div>%s</div></div>`+"\n",
			class, speaker(m.Role), FormatContent(m.Content))
	}
	b.WriteString("</div>\n")
	return b.String()
}

// RenderText writes history for a terminal.
func RenderText(w io.Writer, history []models.ChatMessage) {
	for _, m := range history {
		fmt.Fprintf(w, "%s:\n", speaker(m.Role))
		for _, line := range strings.Split(m.Content, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
	}
}
