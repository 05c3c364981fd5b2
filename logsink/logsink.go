// Package logsink posts visit events to a caller-supplied log URL.
package logsink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventCompleted = "scrape.completed"
	EventFailed    = "scrape.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Steel-Signature"

// Event is the payload sent to a log URL.
type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Sink delivers events. The zero value is not usable; call New.
type Sink struct {
	secret string
	client *http.Client
	delays []time.Duration
	logger *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithSecret signs every body with HMAC-SHA256.
func WithSecret(secret string) Option {
	return func(s *Sink) { s.secret = secret }
}

// WithRetryDelays sets the wait before each attempt; its length is the
// attempt count. Default: 0, 1s, 5s, 30s.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(s *Sink) { s.delays = delays }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// New creates a Sink.
func New(opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver sends one event synchronously.
// Header: X-Steel-Signature: sha256=<hex>
func (s *Sink) Deliver(ctx context.Context, url string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("logsink: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("logsink: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Steel-Scraper-LogSink/1.0")

	if s.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("logsink: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("logsink: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying on failure. The
// returned channel is closed once delivery succeeded or retries ran out.
func (s *Sink) DeliverAsync(url string, event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for attempt, delay := range s.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.Deliver(ctx, url, event)
			cancel()
			if err == nil {
				s.logger.Debug("log event delivered",
					"log_url", url,
					"event", event.Type,
					"request_id", event.RequestID,
					"attempt", attempt+1,
				)
				return
			}
			s.logger.Warn("log event delivery failed",
				"log_url", url,
				"event", event.Type,
				"request_id", event.RequestID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		s.logger.Error("log event delivery exhausted all retries",
			"log_url", url,
			"event", event.Type,
			"request_id", event.RequestID,
		)
	}()
	return done
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
