package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagefetch/models"
)

// Health returns a handler for GET /health. It reports liveness only and
// never touches the browser.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "healthy"})
	}
}
