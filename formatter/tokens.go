package formatter

import "unicode/utf8"

// EstimateTokens approximates the token count of text as one token per three
// characters, rounded down, with a floor of one for non-empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return 0
	case n < 3:
		return 1
	}
	return n / 3
}
