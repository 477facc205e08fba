// Package origin normalizes browser-reported origins and matches them against
// a wildcard hostname allow-list. Matching is pure; assembling the pattern
// list (static config merged with the dynamic document from the store) is the
// caller's job.
package origin

import (
	"net/url"
	"regexp"
	"strings"
)

// Normalize reduces an Origin header value to a bare hostname: scheme and
// port are stripped, the result is lower-cased, and a leading "www." label is
// removed. Unparseable input yields "".
func Normalize(originHeader string) string {
	raw := strings.TrimSpace(originHeader)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}

// Matches reports whether hostname is admitted by patterns.
//
// An empty pattern set matches everything: the allow-list is an opt-in
// restriction, and clearing it is the operational escape hatch to admit all
// origins. A literal "*" pattern likewise matches any hostname. Any other
// pattern is matched case-insensitively and anchored, with "*" expanding to
// an arbitrary prefix; "*.example.com" therefore admits "a.example.com" and
// "a.b.example.com" but not "example.com" itself.
func Matches(hostname string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == "*" {
			return true
		}
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(p), `\*`, ".*") + "$"
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			continue
		}
		if re.MatchString(hostname) {
			return true
		}
	}
	return false
}
