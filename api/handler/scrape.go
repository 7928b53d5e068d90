package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagefetch/models"
	"github.com/use-agent/pagefetch/scraper"
)

// Fetcher is the scrape operation the handler drives.
type Fetcher interface {
	Scrape(ctx context.Context, req *models.ScrapeRequest) (*scraper.Outcome, error)
}

// Scrape returns a handler for POST /scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Fetcher.Scrape → content + response metadata.
//  3. Map errors: INVALID_URL → 400, anything else → 500 with a fixed
//     message. Details only go to the log.
//  4. Shape the 200 body; absent status/content type serialize as null.
func Scrape(f Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Info("rejected scrape payload", "code", models.ErrCodeInvalidInput, "error", err)
			if errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgInvalidURL})
				return
			}
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		req.Defaults()

		// ── 2. Scrape ───────────────────────────────────────────────
		out, err := f.Scrape(c.Request.Context(), &req)
		if err != nil {
			respondError(c, &req, err, time.Since(start))
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		resp := models.ScrapeResponse{
			Content:        out.Content,
			PageStatusCode: out.StatusCode,
			PageError:      out.PageError,
		}
		if out.ContentType != "" {
			ct := out.ContentType
			resp.ContentType = &ct
		}

		slog.Info("scrape served",
			"url", req.URL,
			"status", statusAttr(out.StatusCode),
			"bytes", len(out.Content),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		c.JSON(http.StatusOK, resp)
	}
}

// respondError writes the public error body for err and logs the detail.
func respondError(c *gin.Context, req *models.ScrapeRequest, err error, elapsed time.Duration) {
	code := models.CodeOf(err)
	if code == models.ErrCodeInvalidURL {
		slog.Info("rejected invalid url", "url", req.URL, "error", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgInvalidURL})
		return
	}

	slog.Error("scrape failed",
		"url", req.URL,
		"code", code,
		"error", err,
		"duration_ms", elapsed.Milliseconds(),
	)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: models.MsgFetchFailed})
}

func statusAttr(status *int) any {
	if status == nil {
		return nil
	}
	return *status
}
