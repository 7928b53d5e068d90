package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/pagefetch/models"
)

// Classifier maps a page status to an error message. status is nil when
// no response was received; ok is false when there is nothing to report.
type Classifier func(status *int) (msg string, ok bool)

// Scraper composes a Session and a Navigator into the retrying scrape
// operation. It is safe for concurrent use; every call owns its own
// browsing context.
type Scraper struct {
	session  Session
	nav      *Navigator
	classify Classifier
	logger   *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithNavigator replaces the default Navigator.
func WithNavigator(n *Navigator) Option {
	return func(s *Scraper) { s.nav = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// New creates a Scraper over session, classifying non-200 pages with classify.
func New(session Session, classify Classifier, opts ...Option) *Scraper {
	s := &Scraper{
		session:  session,
		nav:      NewNavigator(),
		classify: classify,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scrape fetches req.URL and returns its content and response metadata.
//
// Lifecycle:
//
//  1. Validate URL            – no browser activity on failure
//  2. Ensure browser          – single-flight launch
//  3. Acquire context         – DEFER: close it on every exit path
//  4. Open page, set headers
//  5. Attempt 1 ("load")      – on any error fall through
//  6. Attempt 2 ("networkidle") on the SAME page; failure is terminal
//  7. Classify non-200 status
func (s *Scraper) Scrape(ctx context.Context, req *models.ScrapeRequest) (*Outcome, error) {
	// ── 1. Validate ───────────────────────────────────────────────────
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	log := s.logger.With("url", req.URL)

	// ── 2. Browser ────────────────────────────────────────────────────
	if err := s.session.EnsureStarted(ctx); err != nil {
		return nil, err
	}

	// ── 3. Context ────────────────────────────────────────────────────
	bctx, err := s.session.NewContext(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to create browsing context", err)
	}
	defer func() {
		if cerr := bctx.Close(); cerr != nil {
			log.Warn("failed to close browsing context", "error", cerr)
		}
	}()

	// ── 4. Page ───────────────────────────────────────────────────────
	page, err := bctx.NewPage(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to open page", err)
	}
	if len(req.Headers) > 0 {
		if err := page.SetExtraHeaders(ctx, req.Headers); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to set extra headers", err)
		}
	}

	opts := LoadOptions{
		URL:           req.URL,
		Wait:          WaitLoad,
		WaitAfterLoad: req.WaitAfterLoadDuration(),
		Timeout:       req.TimeoutDuration(),
		CheckSelector: req.CheckSelector,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = models.DefaultTimeoutMs * time.Millisecond
	}

	// ── 5. Attempt 1 ──────────────────────────────────────────────────
	result, err := s.nav.Load(ctx, page, opts)
	if err != nil {
		log.Warn("navigation attempt failed, retrying",
			"attempt", 1, "wait", opts.Wait, "code", models.CodeOf(err), "error", err)

		// ── 6. Attempt 2 ──────────────────────────────────────────────
		opts.Wait = WaitNetworkIdle
		result, err = s.nav.Load(ctx, page, opts)
		if err != nil {
			log.Error("navigation attempt failed, giving up",
				"attempt", 2, "wait", opts.Wait, "code", models.CodeOf(err), "error", err)
			return nil, models.NewScrapeError(models.ErrCodeScrapeFailed, "all navigation attempts failed", err)
		}
	}

	// ── 7. Classify ───────────────────────────────────────────────────
	outcome := &Outcome{NavigationResult: *result}
	if result.StatusCode == nil || *result.StatusCode != 200 {
		if msg, ok := s.classify(result.StatusCode); ok {
			outcome.PageError = msg
		}
	}

	log.Debug("scrape complete", "wait", opts.Wait, "status", statusAttr(result.StatusCode),
		"contentType", result.ContentType, "bytes", len(result.Content))
	return outcome, nil
}

// ValidateURL checks that rawURL is an absolute, well-formed URI. http and
// https URLs must also carry a host.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return models.NewScrapeError(models.ErrCodeInvalidURL, "url is missing", nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidURL, "url is malformed", err)
	}
	if u.Scheme == "" {
		return models.NewScrapeError(models.ErrCodeInvalidURL, "url has no scheme", nil)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return models.NewScrapeError(models.ErrCodeInvalidURL, "url has no host", nil)
		}
	default:
		if u.Host == "" && u.Opaque == "" && u.Path == "" {
			return models.NewScrapeError(models.ErrCodeInvalidURL, "url is empty after scheme", nil)
		}
	}
	return nil
}

func statusAttr(status *int) any {
	if status == nil {
		return nil
	}
	return *status
}
