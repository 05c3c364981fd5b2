package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/steel-scraper/cleaner"
	"github.com/use-agent/steel-scraper/logsink"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

// LocalName identifies the local engine in health and info output.
const LocalName = "local"

// Local serves visits from this process: the page is fetched over HTTP and
// every representation is computed locally. It renders no JavaScript and
// produces no screenshots or PDFs.
type Local struct {
	engine  Engine
	cleaner *cleaner.Cleaner
	sink    *logsink.Sink
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// LocalOption configures a Local.
type LocalOption func(*Local)

// WithEngine replaces the page fetcher. Default: NewHTTPEngine("").
func WithEngine(e Engine) LocalOption {
	return func(l *Local) { l.engine = e }
}

// WithLogSink enables delivery of visit events to request log URLs.
func WithLogSink(s *logsink.Sink) LocalOption {
	return func(l *Local) { l.sink = s }
}

// WithFetchTimeout bounds a single page fetch.
func WithFetchTimeout(d time.Duration) LocalOption {
	return func(l *Local) { l.timeout = d }
}

// WithLocalLogger sets the logger. Default: slog.Default().
func WithLocalLogger(log *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = log }
}

// NewLocal creates a Local engine.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		logger:  slog.Default(),
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.engine == nil {
		l.engine = NewHTTPEngine("")
	}
	l.cleaner = cleaner.NewCleaner(l.logger)
	return l
}

// Scrape fetches req.URL and builds the requested representations. Error
// statuses from the target page are returned as the reply status.
func (l *Local) Scrape(ctx context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error) {
	start := time.Now()
	requestID := scraper.RequestIDFrom(ctx)
	log := l.logger.With("request_id", requestID, "url", req.URL)

	fr, err := l.engine.Fetch(ctx, &FetchRequest{
		URL:      req.URL,
		ProxyURL: req.ProxyURL,
		Timeout:  l.timeout,
	})
	if err != nil {
		l.emit(req, requestID, logsink.EventFailed, map[string]any{"error": err.Error()})
		return nil, err
	}

	if req.Delay > 0 {
		if err := sleep(ctx, time.Duration(req.Delay*float64(time.Second))); err != nil {
			return nil, err
		}
	}
	if req.Screenshot || req.PDF {
		log.Warn("local engine cannot capture screenshots or PDFs; omitting them",
			"screenshot", req.Screenshot, "pdf", req.PDF)
	}

	reply := &models.RemoteReply{StatusCode: fr.StatusCode, Headers: fr.Headers}
	switch {
	case !reply.OK():
		l.emit(req, requestID, logsink.EventFailed, map[string]any{"statusCode": fr.StatusCode})
		return reply, nil

	case !fr.IsHTML() && fr.ContentType != "" && !strings.HasPrefix(strings.ToLower(fr.ContentType), "text/"):
		reply.StatusCode = http.StatusUnsupportedMediaType
		reply.ErrorMessage = "unsupported content type: " + fr.ContentType
		l.emit(req, requestID, logsink.EventFailed, map[string]any{"error": reply.ErrorMessage})
		return reply, nil
	}

	page, err := l.cleaner.Build(fr.HTML, fr.FinalURL, toFormats(req.Format))
	if err != nil {
		reply.StatusCode = http.StatusInternalServerError
		reply.ErrorMessage = err.Error()
		l.emit(req, requestID, logsink.EventFailed, map[string]any{"error": reply.ErrorMessage})
		return reply, nil
	}

	jsShell := fr.IsHTML() && NeedsJavaScript(fr.HTML)
	if jsShell {
		log.Warn("page looks client-rendered; local content may be incomplete")
	}

	meta := page.Metadata
	if meta.Title == "" {
		meta.Title = fr.Title
	}
	meta.StatusCode = fr.StatusCode
	meta.Timestamp = l.now().UTC().Format(time.RFC3339)

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	reply.Body = &models.RemoteScrapeResponse{
		Content:        page.Content,
		ProcessingTime: &elapsed,
		Metadata:       &meta,
		Links:          page.Links,
	}

	log.Debug("local scrape finished",
		"status", fr.StatusCode,
		"final_url", fr.FinalURL,
		"representations", models.RepresentationKinds(page.Content),
		"links", len(page.Links),
	)
	l.emit(req, requestID, logsink.EventCompleted, map[string]any{
		"statusCode":      fr.StatusCode,
		"representations": models.RepresentationKinds(page.Content),
		"processingTime":  elapsed,
		"needsJavaScript": jsShell,
	})
	return reply, nil
}

// Health reports the local engine as available while ctx is live.
func (l *Local) Health(ctx context.Context) error {
	return ctx.Err()
}

// Info describes the local engine's capabilities.
func (l *Local) Info(ctx context.Context) (*models.RemoteInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.RemoteInfo{
		StatusCode: http.StatusOK,
		Document: map[string]any{
			"name":       "steel-scraper",
			"engine":     LocalName,
			"fetcher":    l.engine.Name(),
			"formats":    models.FormatStrings(),
			"screenshot": false,
			"pdf":        false,
			"javascript": false,
		},
	}, nil
}

func (l *Local) emit(req *models.RemoteScrapeRequest, requestID, eventType string, data map[string]any) {
	if l.sink == nil || req.LogURL == "" {
		return
	}
	l.sink.DeliverAsync(req.LogURL, &logsink.Event{
		Type:      eventType,
		RequestID: requestID,
		URL:       req.URL,
		Timestamp: l.now().Unix(),
		Data:      data,
	})
}

func toFormats(names []string) []models.Format {
	if len(names) == 0 {
		return []models.Format{models.DefaultFormat}
	}
	out := make([]models.Format, len(names))
	for i, n := range names {
		out[i] = models.Format(n)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("delay interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
