package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/steel-scraper/models"
	"github.com/use-agent/steel-scraper/scraper"
)

// Info returns a handler for GET /api/v1/info, relaying the collaborator's
// self-description.
func Info(svc *scraper.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := svc.Info(c.Request.Context())
		if err != nil {
			var se *models.SteelError
			if !errors.As(err, &se) {
				se = models.NewSteelError(models.KindUnknown, err.Error(), nil, err)
			}
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   se,
			})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}
