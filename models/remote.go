package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RemoteScrapeRequest is the body of POST /v1/scrape on the remote service.
type RemoteScrapeRequest struct {
	URL        string   `json:"url"`
	Format     []string `json:"format"`
	Screenshot bool     `json:"screenshot,omitempty"`
	PDF        bool     `json:"pdf,omitempty"`
	ProxyURL   string   `json:"proxyUrl,omitempty"`
	Delay      float64  `json:"delay,omitempty"`
	LogURL     string   `json:"logUrl,omitempty"`
}

// Representations maps representation kind to content, in the order the
// remote service sent them.
type Representations = orderedmap.OrderedMap[string, string]

// NewRepresentations builds a Representations map from alternating
// kind/content pairs.
func NewRepresentations(pairs ...string) *Representations {
	m := orderedmap.New[string, string]()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// RepresentationKinds lists the kinds present in reps, in wire order.
func RepresentationKinds(reps *Representations) []string {
	if reps == nil {
		return nil
	}
	kinds := make([]string, 0, reps.Len())
	for pair := reps.Oldest(); pair != nil; pair = pair.Next() {
		kinds = append(kinds, pair.Key)
	}
	return kinds
}

// PageMetadata is the page-level information the remote service extracted.
// Every field is optional and passed through unmodified.
type PageMetadata struct {
	Title              string `json:"title,omitempty"`
	Description        string `json:"description,omitempty"`
	Language           string `json:"language,omitempty"`
	OGImage            string `json:"ogImage,omitempty"`
	OGTitle            string `json:"ogTitle,omitempty"`
	OGDescription      string `json:"ogDescription,omitempty"`
	PublishedTimestamp string `json:"published_timestamp,omitempty"`
	URLSource          string `json:"urlSource,omitempty"`
	StatusCode         int    `json:"statusCode,omitempty"`
	Timestamp          string `json:"timestamp,omitempty"`
}

// Link is an outbound link found on the page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// RemoteScrapeResponse is the success body of POST /v1/scrape.
type RemoteScrapeResponse struct {
	Content        *Representations `json:"-"`
	ProcessingTime *float64         `json:"processingTime,omitempty"`
	Metadata       *PageMetadata    `json:"metadata,omitempty"`
	Screenshot     string           `json:"screenshot,omitempty"`
	PDF            string           `json:"pdf,omitempty"`
	Links          []Link           `json:"links,omitempty"`
}

type remoteScrapeResponseWire struct {
	Content        *orderedmap.OrderedMap[string, json.RawMessage] `json:"content,omitempty"`
	ProcessingTime *float64                                         `json:"processingTime,omitempty"`
	Metadata       *PageMetadata                                    `json:"metadata,omitempty"`
	Screenshot     string                                           `json:"screenshot,omitempty"`
	PDF            string                                           `json:"pdf,omitempty"`
	Links          []Link                                           `json:"links,omitempty"`
}

// UnmarshalJSON keeps the key order of the content object. Null
// representations are treated as absent; other values that are not JSON
// strings are kept as their raw JSON text.
func (r *RemoteScrapeResponse) UnmarshalJSON(data []byte) error {
	var wire remoteScrapeResponseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	content := orderedmap.New[string, string]()
	if wire.Content != nil {
		for pair := wire.Content.Oldest(); pair != nil; pair = pair.Next() {
			if bytes.Equal(bytes.TrimSpace(pair.Value), []byte("null")) {
				continue
			}
			var s string
			if err := json.Unmarshal(pair.Value, &s); err == nil {
				content.Set(pair.Key, s)
				continue
			}
			content.Set(pair.Key, string(pair.Value))
		}
	}

	*r = RemoteScrapeResponse{
		Content:        content,
		ProcessingTime: wire.ProcessingTime,
		Metadata:       wire.Metadata,
		Screenshot:     wire.Screenshot,
		PDF:            wire.PDF,
		Links:          wire.Links,
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON; content values are always
// written as strings.
func (r RemoteScrapeResponse) MarshalJSON() ([]byte, error) {
	wire := remoteScrapeResponseWire{
		ProcessingTime: r.ProcessingTime,
		Metadata:       r.Metadata,
		Screenshot:     r.Screenshot,
		PDF:            r.PDF,
		Links:          r.Links,
	}
	if r.Content != nil {
		wire.Content = orderedmap.New[string, json.RawMessage]()
		for pair := r.Content.Oldest(); pair != nil; pair = pair.Next() {
			raw, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal representation %q: %w", pair.Key, err)
			}
			wire.Content.Set(pair.Key, raw)
		}
	}
	return json.Marshal(wire)
}

// RemoteReply is what the remote-fetch collaborator hands back for one call:
// the HTTP-style status, plus either a decoded body (2xx) or the remote's
// error message (non-2xx).
type RemoteReply struct {
	StatusCode   int
	Headers      map[string]string
	Body         *RemoteScrapeResponse
	ErrorMessage string
}

// OK reports whether the reply carries a 2xx status.
func (r *RemoteReply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RemoteInfo is the reply of GET /info on the remote service.
type RemoteInfo struct {
	StatusCode   int
	Document     map[string]any
	ErrorMessage string
}

// OK reports whether the reply carries a 2xx status.
func (r *RemoteInfo) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
