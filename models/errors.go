package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure kinds surfaced across the service
// boundary. Values are rendered as "CATEGORY/NAME".
type ErrorKind string

const (
	// Network
	KindNetworkUnavailable ErrorKind = "NETWORK/UNAVAILABLE"
	KindNetworkTimeout     ErrorKind = "NETWORK/TIMEOUT"
	KindNetworkDNSFailure  ErrorKind = "NETWORK/DNS_FAILURE"

	// Content
	KindContentTruncated   ErrorKind = "CONTENT/TRUNCATED"
	KindContentEmpty       ErrorKind = "CONTENT/EMPTY"
	KindContentParseFailed ErrorKind = "CONTENT/PARSE_FAILED"

	// Auth
	KindAuthRequired ErrorKind = "AUTH/REQUIRED"
	KindAuthInvalid  ErrorKind = "AUTH/INVALID"

	// Rate limit
	KindRateLimitExceeded ErrorKind = "RATE_LIMIT/EXCEEDED"

	// Server
	KindServerError       ErrorKind = "SERVER/ERROR"
	KindServerUnavailable ErrorKind = "SERVER/UNAVAILABLE"

	// Client
	KindClientError ErrorKind = "CLIENT/ERROR"

	KindUnknown ErrorKind = "UNKNOWN/ERROR"
)

var allErrorKinds = []ErrorKind{
	KindNetworkUnavailable,
	KindNetworkTimeout,
	KindNetworkDNSFailure,
	KindContentTruncated,
	KindContentEmpty,
	KindContentParseFailed,
	KindAuthRequired,
	KindAuthInvalid,
	KindRateLimitExceeded,
	KindServerError,
	KindServerUnavailable,
	KindClientError,
	KindUnknown,
}

// AllErrorKinds returns every ErrorKind in declaration order.
func AllErrorKinds() []ErrorKind {
	out := make([]ErrorKind, len(allErrorKinds))
	copy(out, allErrorKinds)
	return out
}

// Valid reports whether k belongs to the enumeration.
func (k ErrorKind) Valid() bool {
	for _, known := range allErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Category returns the part before the slash, e.g. "NETWORK".
func (k ErrorKind) Category() string {
	category, _, _ := strings.Cut(string(k), "/")
	return category
}

func (k ErrorKind) String() string { return string(k) }

// ErrMalformedReply marks a remote reply that claimed success but could not be
// interpreted at all. It is the only failure ScraperService lets propagate.
var ErrMalformedReply = errors.New("malformed reply from remote scrape service")

// SteelError pairs an ErrorKind with a message, optional structured metadata
// and an optional wrapped lower-level error.
type SteelError struct {
	Kind     ErrorKind
	Message  string
	Metadata map[string]any
	Err      error
}

// NewSteelError creates a new SteelError.
func NewSteelError(kind ErrorKind, message string, metadata map[string]any, err error) *SteelError {
	return &SteelError{Kind: kind, Message: message, Metadata: metadata, Err: err}
}

func (e *SteelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SteelError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error for logs and API payloads. The wrapped error
// is reduced to its message.
func (e *SteelError) MarshalJSON() ([]byte, error) {
	type wrapped struct {
		Message string `json:"message"`
	}
	out := struct {
		Name          string         `json:"name"`
		Code          ErrorKind      `json:"code"`
		Message       string         `json:"message"`
		Metadata      map[string]any `json:"metadata,omitempty"`
		OriginalError *wrapped       `json:"originalError,omitempty"`
	}{
		Name:     "SteelError",
		Code:     e.Kind,
		Message:  e.Message,
		Metadata: e.Metadata,
	}
	if e.Err != nil {
		out.OriginalError = &wrapped{Message: e.Err.Error()}
	}
	return json.Marshal(out)
}

// KindOf extracts the ErrorKind carried by err, or KindUnknown when err does
// not wrap a SteelError.
func KindOf(err error) ErrorKind {
	var se *SteelError
	if errors.As(err, &se) && se.Kind.Valid() {
		return se.Kind
	}
	return KindUnknown
}
