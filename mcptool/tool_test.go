package mcptool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

type recordingFetcher struct {
	reply *models.RemoteReply
	err   error
	got   *models.RemoteScrapeRequest
}

func (f *recordingFetcher) Scrape(_ context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error) {
	f.got = req
	return f.reply, f.err
}

func (f *recordingFetcher) Health(context.Context) error { return nil }

func (f *recordingFetcher) Info(context.Context) (*models.RemoteInfo, error) {
	return &models.RemoteInfo{StatusCode: 200}, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(f *recordingFetcher) *scraper.Service {
	return scraper.NewService(f,
		scraper.WithLogger(discard),
		scraper.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func call(t *testing.T, f *recordingFetcher, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = ToolName
	req.Params.Arguments = args

	res, err := Handler(newService(f), discard)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func markdownReply(content string) *models.RemoteReply {
	return &models.RemoteReply{
		StatusCode: 200,
		Headers:    map[string]string{"content-type": "text/html"},
		Body:       &models.RemoteScrapeResponse{Content: models.NewRepresentations("markdown", content)},
	}
}

func TestTool_Schema(t *testing.T) {
	tool := Tool()

	assert.Equal(t, "visit_with_browser", tool.Name)
	assert.Equal(t, []string{"url"}, tool.InputSchema.Required)
	for _, name := range []string{"url", "format", "screenshot", "pdf", "proxyUrl", "delay", "logUrl", "maxLength", "verboseMode"} {
		assert.Contains(t, tool.InputSchema.Properties, name)
	}

	format, ok := tool.InputSchema.Properties["format"].(map[string]any)
	require.True(t, ok)
	items, ok := format["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"html", "readability", "cleaned_html", "markdown"}, items["enum"])
}

func TestNewServer_RegistersTool(t *testing.T) {
	s := NewServer(newService(&recordingFetcher{}), discard)

	require.NotNil(t, s.GetTool(ToolName))
	assert.Len(t, s.ListTools(), 1)
}

func TestRequestFromArgs(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{
		"url":         "https://example.com",
		"format":      []any{"html", "markdown"},
		"screenshot":  true,
		"pdf":         true,
		"proxyUrl":    "http://proxy:8080",
		"delay":       1.5,
		"logUrl":      "https://logs.example.com",
		"maxLength":   float64(500),
		"verboseMode": true,
	}

	got := RequestFromArgs(req)

	require.NotNil(t, got.MaxLength)
	assert.Equal(t, 500, *got.MaxLength)
	got.MaxLength = nil
	assert.Equal(t, models.ScrapeRequest{
		URL:         "https://example.com",
		Format:      []models.Format{models.FormatHTML, models.FormatMarkdown},
		Screenshot:  true,
		PDF:         true,
		ProxyURL:    "http://proxy:8080",
		Delay:       1.5,
		LogURL:      "https://logs.example.com",
		VerboseMode: true,
	}, got)
}

func TestRequestFromArgs_Defaults(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"url": "https://example.com", "maxLength": nil}

	got := RequestFromArgs(req)

	assert.Equal(t, models.ScrapeRequest{URL: "https://example.com"}, got)
}

func TestHandler_CompactSuccess(t *testing.T) {
	f := &recordingFetcher{reply: markdownReply("# Test Content")}

	res := call(t, f, map[string]any{"url": "https://example.com"})

	assert.False(t, res.IsError)
	assert.Equal(t, "# Test Content", text(t, res))
	require.NotNil(t, f.got)
	assert.Equal(t, []string{"markdown"}, f.got.Format)
}

func TestHandler_VerboseSuccess(t *testing.T) {
	f := &recordingFetcher{reply: markdownReply("# Test Content")}

	res := call(t, f, map[string]any{"url": "https://example.com", "verboseMode": true})

	assert.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "SUCCESS: Successfully scraped https://example.com\n")
	assert.Contains(t, out, "Timestamp: 2024-05-01T12:00:00.000Z")
	assert.Contains(t, out, "\n\nSCRAPED CONTENT:\n# Test Content")
}

func TestHandler_Failure(t *testing.T) {
	f := &recordingFetcher{reply: &models.RemoteReply{StatusCode: 404, ErrorMessage: "Not Found"}}

	res := call(t, f, map[string]any{"url": "https://example.com"})

	assert.True(t, res.IsError)
	assert.Equal(t, "ERROR: Failed to scrape https://example.com (CLIENT/ERROR): Not Found", text(t, res))
}

func TestHandler_MissingURL(t *testing.T) {
	f := &recordingFetcher{reply: markdownReply("unused")}

	res := call(t, f, map[string]any{})

	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "(CLIENT/ERROR): url is required")
	assert.Nil(t, f.got)
}

func TestHandler_Unexpected(t *testing.T) {
	f := &recordingFetcher{err: fmt.Errorf("%w: truncated json", models.ErrMalformedReply)}

	res := call(t, f, map[string]any{"url": "https://example.com"})

	assert.True(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "Unexpected Error: ")
	assert.Contains(t, out, "(UNKNOWN/ERROR)")
}
