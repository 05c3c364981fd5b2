// Package engine fetches pages without a browser and serves them through the
// same collaborator contract as the remote Steel service.
package engine

import (
	"context"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch retrieves the page for the given request. A response with an
	// error status is a result, not an error.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL      string
	Headers  map[string]string
	ProxyURL string
	Timeout  time.Duration
}

// FetchResult is the output of an engine fetch.
type FetchResult struct {
	HTML        string
	Title       string
	StatusCode  int
	FinalURL    string
	ContentType string
	Headers     map[string]string
	EngineName  string
}

// IsHTML reports whether the fetched body looks like an HTML document.
func (r *FetchResult) IsHTML() bool {
	return isHTMLContentType(r.ContentType)
}
