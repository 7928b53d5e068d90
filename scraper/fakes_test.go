package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// navigateFunc scripts the outcome of the n-th (0-based) navigation.
type navigateFunc func(ctx context.Context, n int, wait WaitStrategy) (*Response, error)

// fakePage answers selector checks against a static HTML document.
type fakePage struct {
	mu       sync.Mutex
	html     string
	navigate navigateFunc
	waits    []WaitStrategy
	urls     []string
	headers  map[string]string
}

func newFakePage(html string, navigate navigateFunc) *fakePage {
	return &fakePage{html: html, navigate: navigate}
}

func (p *fakePage) SetExtraHeaders(_ context.Context, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers = headers
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, rawURL string, wait WaitStrategy) (*Response, error) {
	p.mu.Lock()
	n := len(p.waits)
	p.waits = append(p.waits, wait)
	p.urls = append(p.urls, rawURL)
	p.mu.Unlock()
	if p.navigate == nil {
		return okResponse(200, "text/html; charset=utf-8", ""), nil
	}
	return p.navigate(ctx, n, wait)
}

func (p *fakePage) WaitSelector(ctx context.Context, selector string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() > 0 {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Waits() []WaitStrategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WaitStrategy(nil), p.waits...)
}

// fakeContext records its own closure.
type fakeContext struct {
	session *fakeSession
	page    Page
	pages   int
}

func (c *fakeContext) NewPage(context.Context) (Page, error) {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	c.pages++
	c.session.pagesOpened++
	return c.page, nil
}

func (c *fakeContext) Close() error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	c.session.closed++
	return nil
}

// fakeSession counts launches and context lifecycles.
type fakeSession struct {
	mu          sync.Mutex
	startErr    error
	starts      int
	created     int
	closed      int
	pagesOpened int
	newPage     func() Page
}

func (s *fakeSession) EnsureStarted(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.startErr
}

func (s *fakeSession) NewContext(context.Context) (BrowsingContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return &fakeContext{session: s, page: s.newPage()}, nil
}

func (s *fakeSession) counts() (starts, created, closed, pages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.created, s.closed, s.pagesOpened
}

func sessionFor(page Page) *fakeSession {
	return &fakeSession{newPage: func() Page { return page }}
}

func okResponse(status int, contentType, body string) *Response {
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return &Response{
		Status:  status,
		Headers: headers,
		Body: func(context.Context) ([]byte, error) {
			return []byte(body), nil
		},
	}
}

var errNavFailed = errors.New("net::ERR_CONNECTION_RESET")

// failFirst fails the first navigation and succeeds afterwards.
func failFirst(resp *Response) navigateFunc {
	return func(_ context.Context, n int, _ WaitStrategy) (*Response, error) {
		if n == 0 {
			return nil, errNavFailed
		}
		return resp, nil
	}
}

func alwaysFail(context.Context, int, WaitStrategy) (*Response, error) {
	return nil, errNavFailed
}

func classifyStub(status *int) (string, bool) {
	if status == nil {
		return "no response", true
	}
	if *status == 200 {
		return "", false
	}
	return "status error", true
}
