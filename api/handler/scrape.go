package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/steel-scraper/formatter"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// The body is a models.ScrapeRequest. The response is the ScrapeResult as
// JSON, or with ?render=text the same text a tool caller receives.
func Scrape(svc *scraper.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		textMode := c.Query("render") == "text"

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			result := failureResult(models.KindClientError, err.Error(), http.StatusBadRequest, req.URL)
			respond(c, http.StatusBadRequest, result, textMode, req.VerboseMode)
			return
		}

		// ── 2. Visit ────────────────────────────────────────────────
		result, err := svc.ScrapeWithBrowser(c.Request.Context(), req)
		if err != nil {
			if textMode {
				c.String(http.StatusBadGateway, formatter.FormatUnexpected(err).Text)
				return
			}
			c.JSON(http.StatusBadGateway, failureResult(models.KindOf(err), err.Error(), 0, req.URL))
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		respond(c, statusFor(result), result, textMode, req.VerboseMode)
	}
}

func respond(c *gin.Context, status int, result *models.ScrapeResult, textMode, verbose bool) {
	if textMode {
		c.String(status, formatter.Format(result, verbose).Text)
		return
	}
	c.JSON(status, result)
}

// statusFor maps a result to the HTTP status of this API. Remote client
// errors pass through; upstream auth problems and transport failures are
// gateway errors from the caller's point of view.
func statusFor(r *models.ScrapeResult) int {
	if r.Success {
		return http.StatusOK
	}
	switch {
	case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
		return http.StatusBadGateway
	case r.StatusCode >= 400 && r.StatusCode < 600:
		return r.StatusCode
	}

	kind := models.KindUnknown
	if r.Failure != nil {
		kind = r.Failure.Kind
	}
	switch kind {
	case models.KindNetworkTimeout:
		return http.StatusGatewayTimeout
	case models.KindNetworkUnavailable, models.KindNetworkDNSFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// failureResult builds a failed ScrapeResult for errors raised by this API
// rather than by the visit itself.
func failureResult(kind models.ErrorKind, message string, status int, url string) *models.ScrapeResult {
	return models.NewFailureResult(
		models.NewSteelError(kind, message, nil, nil),
		status, url, nil, models.Timestamp(time.Now()),
	)
}
