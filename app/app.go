// Package app assembles the visit service from configuration. Both binaries
// share it so the HTTP server and the MCP server behave identically.
package app

import (
	"io"
	"log/slog"

	"github.com/use-agent/steel-scraper/cache"
	"github.com/use-agent/steel-scraper/config"
	"github.com/use-agent/steel-scraper/engine"
	"github.com/use-agent/steel-scraper/logsink"
	"github.com/use-agent/steel-scraper/scraper"
	"github.com/use-agent/steel-scraper/steel"
)

// NewLogger builds the process logger from cfg, writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// NewFetcher builds the collaborator selected by cfg.Steel.Engine, wrapped in
// the reply cache when cfg.Cache.TTL is positive. The returned func releases
// background resources.
func NewFetcher(cfg *config.Config, logger *slog.Logger) (scraper.Fetcher, func()) {
	var f cache.Upstream
	switch cfg.Steel.Engine {
	case config.EngineLocal:
		sink := logsink.New(
			logsink.WithSecret(cfg.LogSink.Secret),
			logsink.WithLogger(logger),
		)
		f = engine.NewLocal(
			engine.WithEngine(engine.NewHTTPEngine(cfg.Local.UserAgent)),
			engine.WithLogSink(sink),
			engine.WithFetchTimeout(cfg.Local.FetchTimeout),
			engine.WithLocalLogger(logger),
		)
	default:
		f = steel.NewClient(cfg.Steel.APIURL,
			steel.WithTimeout(cfg.Steel.Timeout()),
			steel.WithRetries(cfg.Steel.Retries),
			steel.WithLogger(logger),
		)
	}

	if cfg.Cache.TTL <= 0 {
		return f, func() {}
	}
	c := cache.New(f, cfg.Cache.TTL, cfg.Cache.MaxEntries, logger)
	return c, c.Close
}

// NewService builds the visit service and its collaborator from cfg.
func NewService(cfg *config.Config, logger *slog.Logger) (*scraper.Service, func()) {
	f, closeFn := NewFetcher(cfg, logger)
	svc := scraper.NewService(f,
		scraper.WithLogger(logger),
		scraper.WithHealthTimeout(cfg.Steel.HealthTimeout),
	)
	return svc, closeFn
}
