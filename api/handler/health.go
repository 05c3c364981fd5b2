package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

// Health returns a handler for GET /api/v1/health.
//
// Probes the collaborator and reports 503 with status "degraded" when it is
// unreachable.
func Health(svc *scraper.Service, engineName string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		remote := svc.HealthCheck(c.Request.Context())

		status, code := "healthy", http.StatusOK
		if !remote {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, models.HealthResponse{
			Status:  status,
			Remote:  remote,
			Engine:  engineName,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: models.Version,
		})
	}
}
