package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/steel-scraper/logsink"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

const trailPage = `<!DOCTYPE html>
<html lang="en">
<head><title>Trail Report</title><meta name="description" content="Conditions on the ridge"></head>
<body>
  <article>
    <h1>Trail Report</h1>
    <p>The ridge trail reopened after the storm. Expect mud on the lower switchbacks and
       loose rock near the saddle. Water is available at the second spring.</p>
    <a href="/maps">Maps</a>
  </article>
</body>
</html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/trail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Served-By", "test")
		_, _ = io.WriteString(w, trailPage)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "<h1>nope</h1>")
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, r.Header.Get("User-Agent"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPEngine_Fetch(t *testing.T) {
	srv := pageServer(t)

	res, err := NewHTTPEngine("").Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/trail"})

	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "Trail Report", res.Title)
	assert.Equal(t, srv.URL+"/trail", res.FinalURL)
	assert.Equal(t, "test", res.Headers["x-served-by"])
	assert.True(t, res.IsHTML())
	assert.Equal(t, "http", res.EngineName)
}

func TestHTTPEngine_ErrorStatusIsAResult(t *testing.T) {
	srv := pageServer(t)

	res, err := NewHTTPEngine("").Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/missing"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPEngine_UserAgent(t *testing.T) {
	srv := pageServer(t)

	res, err := NewHTTPEngine("steel-test/1.0").Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/ua"})
	require.NoError(t, err)
	assert.Equal(t, "steel-test/1.0", res.HTML)

	res, err = NewHTTPEngine("").Fetch(context.Background(), &FetchRequest{
		URL:     srv.URL + "/ua",
		Headers: map[string]string{"User-Agent": "override"},
	})
	require.NoError(t, err)
	assert.Equal(t, "override", res.HTML)
}

func TestHTTPEngine_InvalidProxy(t *testing.T) {
	_, err := NewHTTPEngine("").Fetch(context.Background(), &FetchRequest{URL: "http://example.com", ProxyURL: "::bad"})
	assert.ErrorContains(t, err, "invalid proxy url")
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Hello", extractTitle("<html><head><title> Hello </title></head></html>"))
	assert.Equal(t, "", extractTitle("<html><head></head></html>"))
	assert.Equal(t, "", extractTitle("<title></title>"))
}

func TestLocal_Scrape(t *testing.T) {
	srv := pageServer(t)
	local := NewLocal(WithLocalLogger(quietLogger()))

	reply, err := local.Scrape(context.Background(), &models.RemoteScrapeRequest{
		URL:    srv.URL + "/trail",
		Format: []string{"markdown", "html"},
	})

	require.NoError(t, err)
	assert.Equal(t, 200, reply.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", reply.Headers["content-type"])
	require.NotNil(t, reply.Body)
	assert.Equal(t, []string{"markdown", "html"}, models.RepresentationKinds(reply.Body.Content))

	md, _ := reply.Body.Content.Get("markdown")
	assert.Contains(t, md, "ridge trail reopened")

	require.NotNil(t, reply.Body.Metadata)
	assert.Equal(t, "Trail Report", reply.Body.Metadata.Title)
	assert.Equal(t, "Conditions on the ridge", reply.Body.Metadata.Description)
	assert.Equal(t, "en", reply.Body.Metadata.Language)
	assert.Equal(t, 200, reply.Body.Metadata.StatusCode)
	assert.NotNil(t, reply.Body.ProcessingTime)
	assert.Equal(t, []models.Link{{URL: srv.URL + "/maps", Text: "Maps"}}, reply.Body.Links)
	assert.Empty(t, reply.Body.Screenshot)
}

func TestLocal_DefaultsToMarkdown(t *testing.T) {
	srv := pageServer(t)

	reply, err := NewLocal(WithLocalLogger(quietLogger())).Scrape(context.Background(), &models.RemoteScrapeRequest{URL: srv.URL + "/trail"})

	require.NoError(t, err)
	assert.Equal(t, []string{"markdown"}, models.RepresentationKinds(reply.Body.Content))
}

func TestLocal_TargetErrorStatus(t *testing.T) {
	srv := pageServer(t)

	reply, err := NewLocal(WithLocalLogger(quietLogger())).Scrape(context.Background(), &models.RemoteScrapeRequest{URL: srv.URL + "/missing"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, reply.StatusCode)
	assert.Nil(t, reply.Body)
}

func TestLocal_UnsupportedContentType(t *testing.T) {
	srv := pageServer(t)

	reply, err := NewLocal(WithLocalLogger(quietLogger())).Scrape(context.Background(), &models.RemoteScrapeRequest{URL: srv.URL + "/image"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, reply.StatusCode)
	assert.Equal(t, "unsupported content type: image/png", reply.ErrorMessage)
}

type failingEngine struct{ err error }

func (failingEngine) Name() string { return "failing" }
func (f failingEngine) Fetch(context.Context, *FetchRequest) (*FetchResult, error) {
	return nil, f.err
}

func TestLocal_TransportError(t *testing.T) {
	want := errors.New("connection refused")
	local := NewLocal(WithLocalLogger(quietLogger()), WithEngine(failingEngine{err: want}))

	reply, err := local.Scrape(context.Background(), &models.RemoteScrapeRequest{URL: "http://example.com"})

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, want)
}

func TestLocal_DelayHonoursContext(t *testing.T) {
	srv := pageServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewLocal(WithLocalLogger(quietLogger())).Scrape(ctx, &models.RemoteScrapeRequest{
		URL:   srv.URL + "/trail",
		Delay: 10,
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLocal_EmitsLogEvents(t *testing.T) {
	srv := pageServer(t)
	events := make(chan logsink.Event, 1)
	sinkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev logsink.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		events <- ev
	}))
	defer sinkSrv.Close()

	sink := logsink.New(logsink.WithLogger(quietLogger()), logsink.WithRetryDelays(0))
	local := NewLocal(WithLocalLogger(quietLogger()), WithLogSink(sink))

	ctx := scraper.WithRequestID(context.Background(), "req-42")
	_, err := local.Scrape(ctx, &models.RemoteScrapeRequest{
		URL:    srv.URL + "/trail",
		LogURL: sinkSrv.URL,
	})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, logsink.EventCompleted, ev.Type)
		assert.Equal(t, srv.URL+"/trail", ev.URL)
		assert.Equal(t, "req-42", ev.RequestID)
		data, ok := ev.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, data["needsJavaScript"])
	case <-time.After(5 * time.Second):
		t.Fatal("no log event received")
	}
}

func TestLocal_HealthAndInfo(t *testing.T) {
	local := NewLocal(WithLocalLogger(quietLogger()))

	assert.NoError(t, local.Health(context.Background()))

	info, err := local.Info(context.Background())
	require.NoError(t, err)
	assert.True(t, info.OK())
	assert.Equal(t, LocalName, info.Document["engine"])
	assert.Equal(t, false, info.Document["screenshot"])
}

func TestNeedsJavaScript(t *testing.T) {
	article := "<p>" + strings.Repeat("Plenty of server rendered text about the ridge trail. ", 12) + "</p>"

	tests := []struct {
		name string
		html string
		want bool
	}{
		{"server rendered", "<html><body>" + article + "</body></html>", false},
		{"empty shell", `<html><body><div id="root"></div><script src="/app.js"></script></body></html>`, true},
		{"empty next root", `<html><body><div id="__next"> </div>` + article + `</body></html>`, true},
		{"noscript warning", `<html><body><noscript>You need to enable JavaScript to run this app.</noscript>` + article + `</body></html>`, true},
		{"script text ignored", "<html><body><script>" + strings.Repeat("var x = 1;", 100) + "</script></body></html>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsJavaScript(tt.html))
		})
	}
}
