package scraper

import (
	"strings"

	"github.com/use-agent/steel-scraper/models"
)

// Quality warnings, in evaluation order.
const (
	WarnMarkdownConversionFailed = "Markdown conversion failed - received HTML content instead of markdown. " +
		"The remote service may not support markdown conversion for this page type. " +
		"Try using format=['readability'] for a simpler text extraction."
	WarnMarkdownCutoff = "Markdown content may be truncated mid-sentence"
	WarnMarkdownShort  = "Markdown content is unusually short compared to original content - conversion may have failed"
)

var markupIndicators = []string{"<html", "<!DOCTYPE", "<head>", "<div", "<span", "<script"}

var markdownIndicators = []string{"# ", "## ", "* ", "- "}

const (
	cutoffRatio         = 0.95
	shortContentLimit   = 100
	shortSourceMinimum  = 1000
	sentenceTerminators = ".!?]"
)

// CheckQuality inspects markdown content for known conversion failure modes.
// Every check runs; the result is nil when none trigger. sourceLength is the
// length of the page before selection and truncation, contentBudget comes
// from Normalize.
func CheckQuality(content string, primary models.Format, sourceLength, contentBudget int) []string {
	if primary != models.FormatMarkdown {
		return nil
	}

	var warnings []string

	if hasMarkup(content) && !hasMarkdown(content) {
		warnings = append(warnings, WarnMarkdownConversionFailed)
	}

	n := charCount(content)
	if n > 0 && !endsCleanly(content) && float64(n) >= float64(contentBudget)*cutoffRatio {
		warnings = append(warnings, WarnMarkdownCutoff)
	}

	if n < shortContentLimit && sourceLength > shortSourceMinimum {
		warnings = append(warnings, WarnMarkdownShort)
	}

	return warnings
}

func hasMarkup(content string) bool {
	for _, ind := range markupIndicators {
		if strings.Contains(content, ind) {
			return true
		}
	}
	return false
}

func hasMarkdown(content string) bool {
	for _, ind := range markdownIndicators {
		if strings.Contains(content, ind) {
			return true
		}
	}
	return strings.Contains(content, "[") && strings.Contains(content, "](")
}

// endsCleanly reports whether trimmed content ends with sentence punctuation
// or a closing bracket.
func endsCleanly(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	return strings.ContainsRune(sentenceTerminators, rune(trimmed[len(trimmed)-1]))
}
