package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/steel-scraper/config"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

type stubFetcher struct {
	reply     *models.RemoteReply
	err       error
	healthErr error
	info      *models.RemoteInfo
	infoErr   error
}

func (s *stubFetcher) Scrape(context.Context, *models.RemoteScrapeRequest) (*models.RemoteReply, error) {
	return s.reply, s.err
}

func (s *stubFetcher) Health(context.Context) error { return s.healthErr }

func (s *stubFetcher) Info(context.Context) (*models.RemoteInfo, error) { return s.info, s.infoErr }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

func newTestRouter(t *testing.T, f *stubFetcher, cfg *config.Config) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc := scraper.NewService(f, scraper.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewRouter(ctx, svc, cfg, time.Now())
}

func okFetcher() *stubFetcher {
	return &stubFetcher{reply: &models.RemoteReply{
		StatusCode: 200,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       &models.RemoteScrapeResponse{Content: models.NewRepresentations("markdown", "# Test Content")},
	}}
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) models.ScrapeResult {
	t.Helper()
	var r models.ScrapeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestScrape_JSON(t *testing.T) {
	h := newTestRouter(t, okFetcher(), testConfig())

	w := do(h, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	r := decodeResult(t, w)
	assert.True(t, r.Success)
	assert.Equal(t, "# Test Content", r.Data)
	assert.Equal(t, "application/json", r.Metadata.ContentType)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestScrape_TextRender(t *testing.T) {
	h := newTestRouter(t, okFetcher(), testConfig())

	w := do(h, http.MethodPost, "/api/v1/scrape?render=text", `{"url":"https://example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Test Content", w.Body.String())

	w = do(h, http.MethodPost, "/api/v1/scrape?render=text", `{"url":"https://example.com","verboseMode":true}`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "SUCCESS: Successfully scraped https://example.com\n"))
}

func TestScrape_InvalidBody(t *testing.T) {
	h := newTestRouter(t, okFetcher(), testConfig())

	for _, body := range []string{
		`{}`,
		`{"url":"not a url"}`,
		`{"url":"https://example.com","format":["pdf"]}`,
		`{"url":"https://example.com","maxLength":0}`,
		`{"url":"https://example.com","delay":-1}`,
		`not json`,
	} {
		w := do(h, http.MethodPost, "/api/v1/scrape", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		r := decodeResult(t, w)
		assert.False(t, r.Success, body)
		assert.Equal(t, models.KindClientError, r.Failure.Kind, body)
	}
}

func TestScrape_RemoteFailureStatus(t *testing.T) {
	tests := []struct {
		status int
		want   int
	}{
		{404, 404},
		{429, 429},
		{500, 500},
		{503, 503},
		{401, 502},
		{403, 502},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			h := newTestRouter(t, &stubFetcher{reply: &models.RemoteReply{StatusCode: tt.status}}, testConfig())

			w := do(h, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com"}`)

			assert.Equal(t, tt.want, w.Code)
			assert.False(t, decodeResult(t, w).Success)
		})
	}
}

func TestScrape_TransportFailure(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{err: errors.New("fetch failed")}, testConfig())

	w := do(h, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	r := decodeResult(t, w)
	assert.Equal(t, models.KindNetworkUnavailable, r.Failure.Kind)
	assert.Equal(t, "fetch failed", r.Failure.Message)

	w = do(h, http.MethodPost, "/api/v1/scrape?render=text", `{"url":"https://example.com"}`)
	assert.Equal(t, "ERROR: Failed to scrape https://example.com (NETWORK/UNAVAILABLE): fetch failed", w.Body.String())
}

func TestScrape_MalformedReply(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{err: fmt.Errorf("%w: bad json", models.ErrMalformedReply)}, testConfig())

	w := do(h, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, models.KindUnknown, decodeResult(t, w).Failure.Kind)

	w = do(h, http.MethodPost, "/api/v1/scrape?render=text", `{"url":"https://example.com"}`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Unexpected Error: "))
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{}, testConfig())
	w := do(h, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Remote)
	assert.Equal(t, config.EngineSteel, resp.Engine)

	h = newTestRouter(t, &stubFetcher{healthErr: errors.New("down")}, testConfig())
	w = do(h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestInfo(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{info: &models.RemoteInfo{
		StatusCode: 200,
		Document:   map[string]any{"version": "0.1.0"},
	}}, testConfig())

	w := do(h, http.MethodGet, "/api/v1/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":"0.1.0"}`, w.Body.String())

	h = newTestRouter(t, &stubFetcher{info: &models.RemoteInfo{StatusCode: 500}}, testConfig())
	w = do(h, http.MethodGet, "/api/v1/info", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to get API info: 500 Internal Server Error")
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"k1"}
	h := newTestRouter(t, okFetcher(), cfg)
	body := `{"url":"https://example.com"}`

	w := do(h, http.MethodPost, "/api/v1/scrape", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.KindAuthRequired, decodeResult(t, w).Failure.Kind)

	w = do(h, http.MethodPost, "/api/v1/scrape", body, "X-API-Key", "nope")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.KindAuthInvalid, decodeResult(t, w).Failure.Kind)

	w = do(h, http.MethodPost, "/api/v1/scrape", body, "Authorization", "Bearer k1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	h := newTestRouter(t, okFetcher(), cfg)
	body := `{"url":"https://example.com"}`

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/v1/scrape", body).Code)

	w := do(h, http.MethodPost, "/api/v1/scrape", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.KindRateLimitExceeded, decodeResult(t, w).Failure.Kind)
}

func TestRequestID_Echoed(t *testing.T) {
	h := newTestRouter(t, okFetcher(), testConfig())

	w := do(h, http.MethodGet, "/api/v1/health", "", "X-Request-ID", "abc-123")

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, okFetcher(), testConfig())
	_ = do(h, http.MethodPost, "/api/v1/scrape", `{"url":"https://example.com"}`)

	w := do(h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "steel_scrapes_total")
}
