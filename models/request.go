package models

import "strings"

// Format names one content representation produced by the remote service.
type Format string

const (
	FormatHTML        Format = "html"
	FormatReadability Format = "readability"
	FormatCleanedHTML Format = "cleaned_html"
	FormatMarkdown    Format = "markdown"
)

// DefaultFormat is used when a request names no format.
const DefaultFormat = FormatMarkdown

// Formats lists the representation kinds the remote service understands.
func Formats() []Format {
	return []Format{FormatHTML, FormatReadability, FormatCleanedHTML, FormatMarkdown}
}

// FormatStrings is Formats as plain strings, handy for schema enums.
func FormatStrings() []string {
	fs := Formats()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// ScrapeRequest is the payload for a single visit. It is built once per call
// and treated as read-only afterwards.
type ScrapeRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required,url"`

	// Format is the ordered list of representations to request; the first
	// entry is the primary format. Default: ["markdown"].
	Format []Format `json:"format,omitempty" binding:"omitempty,dive,oneof=html readability cleaned_html markdown"`

	// Screenshot asks the remote service for a base64 screenshot.
	Screenshot bool `json:"screenshot,omitempty"`

	// PDF asks the remote service for a base64 PDF rendering.
	PDF bool `json:"pdf,omitempty"`

	// ProxyURL routes the browser session through a proxy.
	ProxyURL string `json:"proxyUrl,omitempty" binding:"omitempty,url"`

	// Delay is the number of seconds to wait after page load. Must be >= 0.
	Delay float64 `json:"delay,omitempty" binding:"omitempty,min=0"`

	// LogURL is an external sink the remote service sends logs to.
	LogURL string `json:"logUrl,omitempty" binding:"omitempty,url"`

	// MaxLength overrides the per-format default output budget.
	MaxLength *int `json:"maxLength,omitempty" binding:"omitempty,min=1"`

	// VerboseMode requests full metadata in rendered output.
	VerboseMode bool `json:"verboseMode,omitempty"`
}

// PrimaryFormat returns the first requested format, or DefaultFormat.
func (r *ScrapeRequest) PrimaryFormat() Format {
	if len(r.Format) == 0 {
		return DefaultFormat
	}
	return r.Format[0]
}

// Validate checks the request invariants that cannot be defaulted away.
func (r *ScrapeRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.URL) == "":
		return NewSteelError(KindClientError, "url is required", nil, nil)
	case r.Delay < 0:
		return NewSteelError(KindClientError, "delay must not be negative",
			map[string]any{"delay": r.Delay}, nil)
	case r.MaxLength != nil && *r.MaxLength <= 0:
		return NewSteelError(KindClientError, "maxLength must be a positive integer",
			map[string]any{"maxLength": *r.MaxLength}, nil)
	}
	return nil
}
