package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	linkPattern  = regexp.MustCompile(`https?://\S+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripLinks removes URLs and collapses whitespace, keeping case.
func StripLinks(s string) string {
	s = linkPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Normalize is the comparison form of a reply: links stripped, whitespace
// collapsed, lowercased.
func Normalize(s string) string {
	return strings.ToLower(StripLinks(s))
}

// Truncate collapses whitespace and cuts s to at most max runes, marking the
// cut with an ellipsis.
func Truncate(s string, max int) string {
	t := strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(t) <= max {
		return t
	}
	r := []rune(t)
	return string(r[:max-1]) + "…"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
