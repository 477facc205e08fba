// Package sanitize normalizes and bounds free-text submission fields and
// renders the outbound Telegram message. All transformations are pure and
// non-failing: malformed input degrades to an empty or truncated string, it
// never produces an error.
package sanitize

import (
	"strings"
)

// telegramProfilePrefixes are URL forms people paste instead of a bare handle.
var telegramProfilePrefixes = []string{
	"https://t.me/",
	"http://t.me/",
	"https://telegram.me/",
	"http://telegram.me/",
	"t.me/",
}

// TrimAndBound trims surrounding whitespace and truncates the value to at
// most maxLen runes. maxLen <= 0 only trims.
func TrimAndBound(value string, maxLen int) string {
	s := strings.TrimSpace(value)
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen])
	}
	return s
}

// NormalizeHandle reduces a pasted Telegram handle to its bare form: profile
// URL prefixes, a leading "@", and trailing slashes are stripped.
func NormalizeHandle(value string) string {
	s := strings.TrimSpace(value)
	lower := strings.ToLower(s)
	for _, p := range telegramProfilePrefixes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimRight(s, "/")
	return s
}

// EscapeHTML escapes the three characters significant to Telegram's HTML
// parse mode so user text cannot inject markup into the rendered message.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// RenderMessage builds the outbound message body. The handle line appears
// only when handle is non-empty, and the message section (with its label)
// only when body is non-empty. All interpolated user text is HTML-escaped.
func RenderMessage(name, email, handle, body, originHost string) string {
	var b strings.Builder

	b.WriteString("<b>New form submission</b>")
	if originHost != "" {
		b.WriteString(" from <i>")
		b.WriteString(EscapeHTML(originHost))
		b.WriteString("</i>")
	}
	b.WriteString("\n")

	b.WriteString("Name: ")
	b.WriteString(EscapeHTML(name))
	b.WriteString("\n")

	b.WriteString("Email: ")
	b.WriteString(EscapeHTML(email))
	b.WriteString("\n")

	if handle != "" {
		b.WriteString("Telegram: @")
		b.WriteString(EscapeHTML(handle))
		b.WriteString("\n")
	}

	if body != "" {
		b.WriteString("\nMessage:\n")
		b.WriteString(EscapeHTML(body))
	}

	return b.String()
}
