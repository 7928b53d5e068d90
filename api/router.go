package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagefetch/api/handler"
	"github.com/use-agent/pagefetch/api/middleware"
	"github.com/use-agent/pagefetch/config"
	"github.com/use-agent/pagefetch/models"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	/scrape: Auth (if keys configured) → RateLimit (if rate > 0)
//
// Health stays outside auth so monitoring probes always work. ctx bounds
// background goroutines owned by the middleware.
func NewRouter(ctx context.Context, f handler.Fetcher, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("handler panic", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: models.MsgFetchFailed})
	}))
	r.Use(gin.Logger())

	r.GET("/health", handler.Health())

	r.POST("/scrape",
		middleware.Auth(cfg.Auth.APIKeys),
		middleware.RateLimit(ctx, cfg.RateLimit),
		handler.Scrape(f),
	)

	return r
}
