package scraper

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/use-agent/pagefetch/models"
)

// LoadOptions are the parameters of a single navigation attempt.
type LoadOptions struct {
	URL  string
	Wait WaitStrategy

	// WaitAfterLoad is a fixed settle delay after navigation completes.
	WaitAfterLoad time.Duration

	// Timeout bounds the navigation and, separately, the selector wait.
	Timeout time.Duration

	CheckSelector string
}

// Navigator performs one page load attempt and extracts its result.
// It never retries; retry policy belongs to the Scraper.
type Navigator struct {
	sleep func(ctx context.Context, d time.Duration) error
}

// NewNavigator creates a Navigator that uses real timers for settle delays.
func NewNavigator() *Navigator {
	return &Navigator{sleep: sleepContext}
}

// Load runs one attempt:
//
//  1. Navigate under opts.Wait, bounded by opts.Timeout
//  2. Settle delay (opts.WaitAfterLoad), unconditional
//  3. Selector wait, bounded by opts.Timeout
//  4. Extract content, status, headers and content type
func (n *Navigator) Load(ctx context.Context, page Page, opts LoadOptions) (*NavigationResult, error) {
	// ── 1. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	resp, err := page.Navigate(navCtx, opts.URL, opts.Wait)
	timedOut := errors.Is(navCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewScrapeError(models.ErrCodeNavigationTimeout,
				"navigation exceeded "+opts.Timeout.String(), err)
		}
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "navigation failed", err)
	}

	// ── 2. Settle delay ───────────────────────────────────────────────
	if opts.WaitAfterLoad > 0 {
		if err := n.sleep(ctx, opts.WaitAfterLoad); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeNavigation, "request canceled during settle delay", err)
		}
	}

	// ── 3. Structural marker ──────────────────────────────────────────
	if opts.CheckSelector != "" {
		selCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		err := page.WaitSelector(selCtx, opts.CheckSelector)
		cancel()
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeSelectorNotFound,
				"selector "+opts.CheckSelector+" did not appear", err)
		}
	}

	// ── 4. Extract ────────────────────────────────────────────────────
	return n.extract(ctx, page, resp)
}

// extract builds the NavigationResult. JSON and plain-text responses keep
// their raw body; everything else uses the rendered DOM.
func (n *Navigator) extract(ctx context.Context, page Page, resp *Response) (*NavigationResult, error) {
	result := &NavigationResult{}
	if resp != nil {
		status := resp.Status
		result.StatusCode = &status
		result.Headers = resp.Headers
		result.ContentType = headerValue(resp.Headers, "content-type")
	}

	if resp != nil && resp.Body != nil && isRawContentType(result.ContentType) {
		body, err := resp.Body(ctx)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to read response body", err)
		}
		result.Content = strings.ToValidUTF8(string(body), "\uFFFD")
		return result, nil
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to extract page HTML", err)
	}
	result.Content = html
	return result, nil
}

// isRawContentType reports whether a response must be returned verbatim
// rather than through the DOM serializer.
func isRawContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Debug("unparsable content type, matching by substring", "contentType", contentType)
		lower := strings.ToLower(contentType)
		return strings.Contains(lower, "application/json") || strings.Contains(lower, "text/plain")
	}
	return mediaType == "application/json" || mediaType == "text/plain"
}

// sleepContext waits for d, returning early only if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
