package models

import "time"

// timestampLayout is ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC the way results report it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ScrapeResult is the outcome of one visit. Exactly one of the success fields
// (Data, Metadata, Screenshot, PDF, Links) or Failure is populated.
type ScrapeResult struct {
	// Success indicates whether the visit produced content.
	Success bool `json:"success"`

	// StatusCode is the HTTP-style status of the remote call. On failure it
	// is best-effort and may be zero when no response was received.
	StatusCode int `json:"statusCode,omitempty"`

	// Data is the selected, possibly truncated, content.
	Data string `json:"data,omitempty"`

	// Headers are the remote service's response headers.
	Headers map[string]string `json:"headers,omitempty"`

	Metadata *ResultMetadata `json:"metadata,omitempty"`

	// Screenshot and PDF are opaque base64 payloads passed through from the
	// remote service.
	Screenshot string `json:"screenshot,omitempty"`
	PDF        string `json:"pdf,omitempty"`

	Links []Link `json:"links,omitempty"`

	// Failure is populated only when Success is false.
	Failure *Failure `json:"error,omitempty"`
}

// ResultMetadata describes a successful visit.
type ResultMetadata struct {
	URL            string   `json:"url"`
	Timestamp      string   `json:"timestamp"`
	Format         []Format `json:"format"`
	ProcessingTime *float64 `json:"processingTime,omitempty"`
	ContentLength  int      `json:"contentLength"`
	ReturnedLength int      `json:"returnedLength"`
	ContentType    string   `json:"contentType,omitempty"`
	Method         string   `json:"method,omitempty"`
	Truncated      bool     `json:"truncated"`
	Warnings       []string `json:"warnings,omitempty"`
	VerboseMode    bool     `json:"verboseMode"`

	Title              string `json:"title,omitempty"`
	Description        string `json:"description,omitempty"`
	Language           string `json:"language,omitempty"`
	OGImage            string `json:"ogImage,omitempty"`
	OGTitle            string `json:"ogTitle,omitempty"`
	OGDescription      string `json:"ogDescription,omitempty"`
	PublishedTimestamp string `json:"publishedTimestamp,omitempty"`
}

// Failure describes a classified failed visit.
type Failure struct {
	Kind      ErrorKind      `json:"code"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	URL       string         `json:"url,omitempty"`
	Timestamp string         `json:"timestamp"`
	Format    []Format       `json:"format,omitempty"`
}

// NewFailureResult converts a SteelError into a failed ScrapeResult.
func NewFailureResult(err *SteelError, statusCode int, url string, formats []Format, timestamp string) *ScrapeResult {
	return &ScrapeResult{
		Success:    false,
		StatusCode: statusCode,
		Failure: &Failure{
			Kind:      err.Kind,
			Message:   err.Message,
			Metadata:  err.Metadata,
			URL:       url,
			Timestamp: timestamp,
			Format:    formats,
		},
	}
}

// Version is reported by the health endpoint and the MCP server.
const Version = "1.0.0"

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Remote  bool   `json:"remote"`
	Engine  string `json:"engine"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
