// Package steel talks to a remote Steel browser-automation service over HTTP.
package steel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/steel-scraper/models"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:3000"

	// DefaultTimeout bounds one HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of extra attempts after the first.
	DefaultRetries = 3

	// maxBodyBytes caps a reply body; screenshots and PDFs arrive inline.
	maxBodyBytes = 64 << 20
)

// Client implements scraper.Fetcher against the Steel HTTP API:
// POST /v1/scrape, GET /health and GET /info.
type Client struct {
	baseURL string
	http    *http.Client
	retries int
	backoff func(attempt int) time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff overrides the delay before retry attempt n (1-based).
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = f }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the service at baseURL. A trailing slash on
// baseURL is ignored.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		retries: DefaultRetries,
		backoff: exponentialBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Scrape sends one visit to POST /v1/scrape. Transport failures, 429 and
// 502/503/504 are retried; the last attempt's outcome is returned. Non-2xx
// replies come back as data with the service's error message when present.
func (c *Client) Scrape(ctx context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	var (
		reply   *models.RemoteReply
		lastErr error
	)
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				break
			}
			c.logger.Debug("retrying remote scrape",
				"url", req.URL,
				"attempt", attempt+1,
				"last_error", errString(lastErr),
				"last_status", statusOf(reply),
			)
		}

		reply, lastErr = c.scrapeOnce(ctx, payload)
		if errors.Is(lastErr, models.ErrMalformedReply) {
			return nil, lastErr
		}
		if !c.retryable(ctx, reply, lastErr) {
			break
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return reply, nil
}

func (c *Client) scrapeOnce(ctx context.Context, payload []byte) (*models.RemoteReply, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read scrape reply: %w", err)
	}

	reply := &models.RemoteReply{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}
	if !reply.OK() {
		reply.ErrorMessage = errorMessage(body)
		return reply, nil
	}

	var decoded models.RemoteScrapeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode scrape reply: %v", models.ErrMalformedReply, err)
	}
	reply.Body = &decoded
	return reply, nil
}

// Health probes GET /health. Any non-2xx status is an error.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Info fetches GET /info. A non-2xx status is returned as data; an
// undecodable 2xx body wraps models.ErrMalformedReply.
func (c *Client) Info(ctx context.Context) (*models.RemoteInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return nil, fmt.Errorf("create info request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read info reply: %w", err)
	}

	info := &models.RemoteInfo{StatusCode: resp.StatusCode}
	if !info.OK() {
		info.ErrorMessage = errorMessage(body)
		return info, nil
	}
	if err := json.Unmarshal(body, &info.Document); err != nil {
		return nil, fmt.Errorf("%w: decode info reply: %v", models.ErrMalformedReply, err)
	}
	return info, nil
}

// retryable reports whether another attempt may succeed. A cancelled or
// expired caller context is final.
func (c *Client) retryable(ctx context.Context, reply *models.RemoteReply, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	switch reply.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// errorMessage extracts the service's error text from a non-2xx body. The
// service sends either {"error": "..."} or {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Error, &s); err == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return envelope.Message
}

// flattenHeaders lowercases header names and joins repeated values.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[strings.ToLower(k)] = strings.Join(vs, ", ")
		}
	}
	return out
}

func exponentialBackoff(attempt int) time.Duration {
	d := 500 * time.Millisecond << (attempt - 1)
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func statusOf(r *models.RemoteReply) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}
