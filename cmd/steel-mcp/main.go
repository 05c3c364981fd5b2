package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/steel-scraper/app"
	"github.com/use-agent/steel-scraper/config"
	"github.com/use-agent/steel-scraper/mcptool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr.
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	svc, closeFetcher := app.NewService(cfg, logger)
	defer closeFetcher()

	s := mcptool.NewServer(svc, logger)

	slog.Info("Steel Scraper MCP server running on stdio",
		"engine", cfg.Steel.Engine,
		"steelApiUrl", cfg.Steel.APIURL,
	)
	if err := server.ServeStdio(s); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
