// Package formatter renders visit results as the text blocks returned to
// tool callers.
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/use-agent/steel-scraper/models"
)

// Rendered is one text block plus an error flag for the caller's protocol.
type Rendered struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError,omitempty"`
}

// Format dispatches on r.Success.
func Format(r *models.ScrapeResult, verbose bool) Rendered {
	if r.Success {
		return FormatSuccess(r, verbose)
	}
	return FormatFailure(r, verbose)
}

// FormatSuccess renders a successful result. Compact output is the content,
// prefixed by a warning line when the quality checks flagged anything.
func FormatSuccess(r *models.ScrapeResult, verbose bool) Rendered {
	md := r.Metadata
	if md == nil {
		md = &models.ResultMetadata{}
	}

	if !verbose {
		if len(md.Warnings) == 0 {
			return Rendered{Text: r.Data}
		}
		return Rendered{Text: "[WARNING: " + strings.Join(md.Warnings, "; ") + "]\n\n" + r.Data}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SUCCESS: Successfully scraped %s\n", md.URL)
	fmt.Fprintf(&b, "Method: %s (stealth browser, anti-detection)\n", md.Method)
	fmt.Fprintf(&b, "Format: %s\n", formatList(md.Format))
	fmt.Fprintf(&b, "Status Code: %d\n", r.StatusCode)
	fmt.Fprintf(&b, "Processing Time: %s\n", processingTime(md.ProcessingTime))
	fmt.Fprintf(&b, "Content Length: %d characters", md.ContentLength)
	if md.Truncated {
		fmt.Fprintf(&b, " (truncated to %d characters)", md.ReturnedLength)
	}
	if len(md.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings: %s", strings.Join(md.Warnings, "; "))
	}
	fmt.Fprintf(&b, "\nContent Type: %s\n", md.ContentType)
	fmt.Fprintf(&b, "Timestamp: %s", md.Timestamp)
	fmt.Fprintf(&b, "\nEstimated Tokens: %d", EstimateTokens(r.Data))
	if md.Title != "" {
		fmt.Fprintf(&b, "\nTitle: %s", md.Title)
	}
	if md.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", md.Description)
	}
	if md.Language != "" {
		fmt.Fprintf(&b, "\nLanguage: %s", md.Language)
	}
	if r.Screenshot != "" {
		b.WriteString("\nScreenshot: Available (base64)")
	}
	if r.PDF != "" {
		b.WriteString("\nPDF: Available (base64)")
	}
	if len(r.Links) > 0 {
		fmt.Fprintf(&b, "\nLinks Found: %d", len(r.Links))
	}
	b.WriteString("\n\nSCRAPED CONTENT:\n")
	b.WriteString(r.Data)

	return Rendered{Text: b.String()}
}

// FormatFailure renders a failed result. Compact output is a single line.
func FormatFailure(r *models.ScrapeResult, verbose bool) Rendered {
	f := r.Failure
	if f == nil {
		f = &models.Failure{Kind: models.KindUnknown}
	}
	url := f.URL
	if url == "" {
		url = "unknown URL"
	}

	if !verbose {
		text := "ERROR: Failed to scrape " + url
		if f.Kind != "" {
			text += " (" + string(f.Kind) + ")"
		}
		if f.Message != "" {
			text += ": " + f.Message
		}
		return Rendered{Text: text, IsError: true}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ERROR: Failed to scrape %s\n", url)
	if f.Kind != "" {
		fmt.Fprintf(&b, "Error Code: %s\n", f.Kind)
	}
	if f.Message != "" {
		fmt.Fprintf(&b, "Error: %s\n", f.Message)
	}
	status := "unknown"
	if r.StatusCode != 0 {
		status = strconv.Itoa(r.StatusCode)
	}
	fmt.Fprintf(&b, "Status Code: %s\n", status)
	fmt.Fprintf(&b, "Timestamp: %s\n", f.Timestamp)
	if len(f.Metadata) > 0 {
		raw, err := json.MarshalIndent(f.Metadata, "", "  ")
		if err != nil {
			b.WriteString("Error Metadata: Unable to serialize metadata\n")
		} else {
			fmt.Fprintf(&b, "Error Metadata: %s\n", raw)
		}
	}

	return Rendered{Text: b.String(), IsError: true}
}

// FormatUnexpected renders an error that escaped result classification, for
// example a reply the remote service sent that could not be decoded.
func FormatUnexpected(err error) Rendered {
	kind := models.KindUnknown
	var se *models.SteelError
	if errors.As(err, &se) {
		kind = se.Kind
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Rendered{
		Text:    fmt.Sprintf("Unexpected Error: %s (%s)", msg, kind),
		IsError: true,
	}
}

func formatList(formats []models.Format) string {
	if len(formats) == 0 {
		return "unknown"
	}
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func processingTime(ms *float64) string {
	if ms == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*ms, 'f', -1, 64) + "ms"
}
