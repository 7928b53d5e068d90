package scraper

import (
	"context"
	"strings"
)

// WaitStrategy is the condition under which a navigation is considered complete.
type WaitStrategy string

const (
	// WaitLoad completes when the document's load event fires.
	WaitLoad WaitStrategy = "load"

	// WaitNetworkIdle completes once network activity has been quiet for a
	// sustained interval after the load event.
	WaitNetworkIdle WaitStrategy = "networkidle"
)

// Response is the main-document response observed during a navigation.
type Response struct {
	Status  int
	Headers map[string]string

	// Body fetches the raw response bytes. It may be nil when the body
	// cannot be retrieved for this response.
	Body func(ctx context.Context) ([]byte, error)
}

// Page is a single browser tab, exclusively owned by one request.
type Page interface {
	// SetExtraHeaders sends headers with every subsequent request of the page.
	SetExtraHeaders(ctx context.Context, headers map[string]string) error

	// Navigate loads rawURL and blocks until the wait strategy is satisfied
	// or ctx is done. The returned Response is nil when the navigation
	// produced no HTTP response.
	Navigate(ctx context.Context, rawURL string, wait WaitStrategy) (*Response, error)

	// WaitSelector blocks until an element matches selector or ctx is done.
	WaitSelector(ctx context.Context, selector string) error

	// HTML serializes the rendered document.
	HTML(ctx context.Context) (string, error)
}

// BrowsingContext is an isolated cookie/cache/storage scope with its own
// identity and interception rules. Closing it invalidates its pages.
type BrowsingContext interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Session owns the long-lived browser process.
type Session interface {
	// EnsureStarted launches the browser once; concurrent callers share a
	// single launch.
	EnsureStarted(ctx context.Context) error

	// NewContext creates a fresh BrowsingContext with request filtering
	// already installed.
	NewContext(ctx context.Context) (BrowsingContext, error)
}

// NavigationResult is what a single successful page load produced.
type NavigationResult struct {
	// Content is the rendered document, or the raw body for JSON and
	// plain-text responses.
	Content string

	// StatusCode is nil when the navigation produced no response.
	StatusCode *int

	// Headers is nil when the navigation produced no response.
	Headers map[string]string

	// ContentType is empty when absent.
	ContentType string
}

// Outcome is the final result of a scrape.
type Outcome struct {
	NavigationResult

	// PageError is empty when the status code is 200.
	PageError string
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
