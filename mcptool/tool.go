// Package mcptool exposes the visit service as an MCP tool.
package mcptool

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/steel-scraper/formatter"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

// ServerName is announced to MCP clients.
const ServerName = "steel-scraper"

// ToolName is the single tool this server registers.
const ToolName = "visit_with_browser"

// NewServer builds an MCP server with the visit tool registered.
func NewServer(svc *scraper.Service, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		models.Version,
		server.WithToolCapabilities(false),
	)
	s.AddTool(Tool(), Handler(svc, logger))
	return s
}

// Tool describes visit_with_browser and its argument schema.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Visit any website using full browser automation (stealth mode, anti-detection). "+
			"Returns page content in your chosen format: 'html' for raw HTML source, 'markdown' for clean formatted text "+
			"(recommended for reading), 'readability' for Mozilla Readability format, or 'cleaned_html' for cleaned HTML. "+
			"Supports screenshot and PDF generation. Automatically handles JavaScript rendering and provides clean output by default."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The complete URL to scrape (must include http:// or https://)"),
		),
		mcp.WithArray("format",
			mcp.Description("Content formats to extract: 'html'=raw HTML source (may be very large), "+
				"'markdown'=clean formatted text converted from HTML (recommended for reading), "+
				"'readability'=Mozilla Readability format, 'cleaned_html'=cleaned HTML. You can request multiple formats."),
			mcp.WithStringEnumItems(models.FormatStrings()),
			mcp.DefaultArray([]string{string(models.DefaultFormat)}),
		),
		mcp.WithBoolean("screenshot",
			mcp.Description("Take a screenshot of the page (returns base64 encoded image)"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("pdf",
			mcp.Description("Generate a PDF of the page (returns base64 encoded PDF)"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("proxyUrl",
			mcp.Description("Proxy URL to use for the request (e.g., 'http://proxy:port')"),
		),
		mcp.WithNumber("delay",
			mcp.Description("Delay in seconds to wait after page load before scraping"),
			mcp.DefaultNumber(0),
			mcp.Min(0),
		),
		mcp.WithString("logUrl",
			mcp.Description("URL to send logs to for debugging purposes"),
		),
		mcp.WithNumber("maxLength",
			mcp.Description("Maximum characters to return (optional). Smart defaults: markdown=8000, readability=10000, "+
				"html=15000, cleaned_html=12000. For markdown, automatically reserves space for metadata."),
		),
		mcp.WithBoolean("verboseMode",
			mcp.Description("Return full metadata instead of clean content-focused output (optional, default: false). "+
				"Use when you need detailed scraping information."),
			mcp.DefaultBool(false),
		),
	)
}

// Handler runs one visit per tool call and renders the result as text.
// Failed visits and unexpected errors come back as error results rather
// than protocol errors.
func Handler(svc *scraper.Service, logger *slog.Logger) server.ToolHandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := RequestFromArgs(request)

		result, err := svc.ScrapeWithBrowser(ctx, req)
		if err != nil {
			logger.Error("visit failed unexpectedly", "url", req.URL, "error", err)
			return toolResult(formatter.FormatUnexpected(err)), nil
		}
		return toolResult(formatter.Format(result, req.VerboseMode)), nil
	}
}

// RequestFromArgs maps tool arguments onto a ScrapeRequest. Arguments of the
// wrong type fall back to their defaults; the service rejects what remains
// invalid, such as a missing url.
func RequestFromArgs(request mcp.CallToolRequest) models.ScrapeRequest {
	req := models.ScrapeRequest{
		URL:         request.GetString("url", ""),
		Screenshot:  request.GetBool("screenshot", false),
		PDF:         request.GetBool("pdf", false),
		ProxyURL:    request.GetString("proxyUrl", ""),
		Delay:       request.GetFloat("delay", 0),
		LogURL:      request.GetString("logUrl", ""),
		VerboseMode: request.GetBool("verboseMode", false),
	}
	for _, f := range request.GetStringSlice("format", nil) {
		req.Format = append(req.Format, models.Format(f))
	}
	if v, ok := request.GetArguments()["maxLength"]; ok && v != nil {
		n := int(request.GetFloat("maxLength", 0))
		req.MaxLength = &n
	}
	return req
}

func toolResult(r formatter.Rendered) *mcp.CallToolResult {
	if r.IsError {
		return mcp.NewToolResultError(r.Text)
	}
	return mcp.NewToolResultText(r.Text)
}
