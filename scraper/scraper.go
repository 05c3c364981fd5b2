package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/steel-scraper/metrics"
	"github.com/use-agent/steel-scraper/models"
)

// MethodBrowserAutomation is reported in result metadata.
const MethodBrowserAutomation = "full-browser-automation"

// DefaultHealthTimeout bounds a single health probe.
const DefaultHealthTimeout = 5 * time.Second

// Fetcher is the remote-fetch collaborator. Scrape returns a transport error
// only when no HTTP-style reply was received; a non-2xx reply is returned as
// data. An undecodable 2xx body is reported by wrapping models.ErrMalformedReply.
type Fetcher interface {
	Scrape(ctx context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error)
	Health(ctx context.Context) error
	Info(ctx context.Context) (*models.RemoteInfo, error)
}

// Service turns visit requests into normalized, size-bounded results.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	fetcher       Fetcher
	logger        *slog.Logger
	now           func() time.Time
	healthTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHealthTimeout overrides the health probe bound. Non-positive values
// are ignored and values above DefaultHealthTimeout are clamped to it.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.healthTimeout = min(d, DefaultHealthTimeout)
		}
	}
}

// NewService creates a Service backed by the given collaborator.
func NewService(f Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:       f,
		logger:        slog.Default(),
		now:           time.Now,
		healthTimeout: DefaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapeWithBrowser performs one visit.
//
// Flow:
//  1. Normalize formats and length budgets; reject invalid requests.
//  2. Invoke the remote service once.
//  3. Select the primary representation.
//  4. Run the quality heuristics on the untruncated content.
//  5. Apply the length budget.
//
// Transport failures and non-2xx replies come back as a failed result. The
// error return is reserved for replies that cannot be interpreted at all.
func (s *Service) ScrapeWithBrowser(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	start := time.Now()
	log := s.logger.With("request_id", RequestIDFrom(ctx), "url", req.URL)

	// ── 1. Normalize ────────────────────────────────────────────────
	plan := Normalize(&req)
	if err := req.Validate(); err != nil {
		var se *models.SteelError
		if !errors.As(err, &se) {
			se = models.NewSteelError(models.KindClientError, err.Error(), nil, err)
		}
		return s.fail(log, se, http.StatusBadRequest, &req, plan, start), nil
	}
	log.Debug("scrape planned",
		"formats", plan.Formats,
		"maxLength", plan.MaxLength,
		"contentBudget", plan.ContentBudget,
	)

	// ── 2. Remote call ──────────────────────────────────────────────
	reply, err := s.fetcher.Scrape(ctx, plan.remoteRequest(&req))
	if err != nil {
		if errors.Is(err, models.ErrMalformedReply) {
			log.Error("remote reply could not be interpreted", "error", err)
			metrics.ObserveScrape(metrics.OutcomeMalformed, models.KindUnknown, time.Since(start))
			return nil, err
		}
		return s.fail(log, transportError(err, req.URL), 0, &req, plan, start), nil
	}
	if reply == nil {
		metrics.ObserveScrape(metrics.OutcomeMalformed, models.KindUnknown, time.Since(start))
		return nil, fmt.Errorf("%w: no reply and no error", models.ErrMalformedReply)
	}
	if !reply.OK() {
		return s.fail(log, statusError(reply, req.URL), reply.StatusCode, &req, plan, start), nil
	}
	if reply.Body == nil {
		metrics.ObserveScrape(metrics.OutcomeMalformed, models.KindUnknown, time.Since(start))
		return nil, fmt.Errorf("%w: status %d without a body", models.ErrMalformedReply, reply.StatusCode)
	}
	body := reply.Body

	// ── 3. Select ───────────────────────────────────────────────────
	content := SelectContent(body.Content, plan.Formats)
	originalLength := charCount(content)

	// ── 4. Quality ──────────────────────────────────────────────────
	warnings := CheckQuality(content, plan.Primary, sourceLength(body.Content), plan.ContentBudget)
	for _, w := range warnings {
		log.Warn("content quality warning", "format", plan.Primary, "warning", w)
	}

	// ── 5. Truncate ─────────────────────────────────────────────────
	data, truncated := Truncate(content, plan.MaxLength)
	if truncated {
		log.Info("content truncated", "from", originalLength, "to", plan.MaxLength)
	}

	result := &models.ScrapeResult{
		Success:    true,
		StatusCode: reply.StatusCode,
		Data:       data,
		Headers:    reply.Headers,
		Metadata: &models.ResultMetadata{
			URL:            req.URL,
			Timestamp:      s.timestamp(),
			Format:         plan.Formats,
			ProcessingTime: body.ProcessingTime,
			ContentLength:  originalLength,
			ReturnedLength: charCount(data),
			ContentType:    contentType(reply.Headers),
			Method:         MethodBrowserAutomation,
			Truncated:      truncated,
			Warnings:       warnings,
			VerboseMode:    req.VerboseMode,
		},
		Screenshot: body.Screenshot,
		PDF:        body.PDF,
		Links:      body.Links,
	}
	if pm := body.Metadata; pm != nil {
		md := result.Metadata
		md.Title = pm.Title
		md.Description = pm.Description
		md.Language = pm.Language
		md.OGImage = pm.OGImage
		md.OGTitle = pm.OGTitle
		md.OGDescription = pm.OGDescription
		md.PublishedTimestamp = pm.PublishedTimestamp
	}

	log.Info("scrape completed",
		"status", reply.StatusCode,
		"representations", models.RepresentationKinds(body.Content),
		"contentLength", originalLength,
		"returnedLength", result.Metadata.ReturnedLength,
		"truncated", truncated,
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	metrics.ObserveContent(plan.Primary, truncated, len(warnings))
	metrics.ObserveScrape(metrics.OutcomeSuccess, "", time.Since(start))
	return result, nil
}

// HealthCheck probes the remote service. It waits at most the health timeout
// and reports false on any failure, including a probe that ignores ctx.
func (s *Service) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("health probe panicked: %v", r)
			}
		}()
		done <- s.fetcher.Health(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	healthy := err == nil
	if !healthy {
		s.logger.Warn("remote health check failed", "error", err)
	}
	metrics.ObserveHealth(healthy)
	return healthy
}

// Info returns the remote service's self-description.
func (s *Service) Info(ctx context.Context) (map[string]any, error) {
	info, err := s.fetcher.Info(ctx)
	if err != nil {
		var se *models.SteelError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, models.NewSteelError(ClassifyTransport(err),
			"failed to get API info: "+err.Error(), nil, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: no info reply and no error", models.ErrMalformedReply)
	}
	if !info.OK() {
		return nil, models.NewSteelError(ClassifyStatus(info.StatusCode),
			"failed to get API info: "+StatusMessage(info.StatusCode, info.ErrorMessage),
			map[string]any{"statusCode": info.StatusCode}, nil)
	}
	return info.Document, nil
}

type requestIDKey struct{}

// WithRequestID attaches a caller-chosen request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id attached to ctx, or a fresh one.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Service) fail(log *slog.Logger, se *models.SteelError, status int, req *models.ScrapeRequest, plan Plan, start time.Time) *models.ScrapeResult {
	log.Warn("scrape failed",
		"kind", se.Kind,
		"status", status,
		"error", se.Message,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	metrics.ObserveScrape(metrics.OutcomeFailure, se.Kind, time.Since(start))
	return models.NewFailureResult(se, status, req.URL, plan.Formats, s.timestamp())
}

func (s *Service) timestamp() string {
	return models.Timestamp(s.now())
}

func contentType(headers map[string]string) string {
	if ct := headers["content-type"]; ct != "" {
		return ct
	}
	return "unknown"
}
