package scraper

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// truncationMarkerRe matches the marker Truncate appends.
var truncationMarkerRe = regexp.MustCompile(`\n\n\[CONTENT TRUNCATED: \d+ characters total, showing first \d+ characters\]$`)

// Truncate cuts content to maxLength characters (Unicode code points) and
// appends a marker with the original and shown lengths. Content that already
// carries a marker and whose body fits is returned unchanged, so re-applying
// the policy is a no-op. Such content reports truncated=true even when it
// merely ends in marker-shaped text and nothing was cut here.
func Truncate(content string, maxLength int) (string, bool) {
	if loc := truncationMarkerRe.FindStringIndex(content); loc != nil {
		if charCount(content[:loc[0]]) <= maxLength {
			return content, true
		}
	}

	total := charCount(content)
	if total <= maxLength {
		return content, false
	}

	return prefixChars(content, maxLength) + truncationMarker(total, maxLength), true
}

func truncationMarker(total, shown int) string {
	return fmt.Sprintf("\n\n[CONTENT TRUNCATED: %d characters total, showing first %d characters]", total, shown)
}

func charCount(s string) int {
	return utf8.RuneCountInString(s)
}

// prefixChars returns the first n code points of s.
func prefixChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
