package scraper

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/use-agent/pagefetch/models"
)

const testHTML = `<html><head><title>t</title></head><body><div id="main">hello</div></body></html>`

func newTestScraper(session Session) *Scraper {
	return New(session, classifyStub)
}

func TestScrape_FirstAttemptSucceeds(t *testing.T) {
	page := newFakePage(testHTML, nil)
	session := sessionFor(page)

	out, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 1000,
	})
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if out.Content != testHTML {
		t.Errorf("Content = %q, want rendered HTML", out.Content)
	}
	if got, want := page.Waits(), []WaitStrategy{WaitLoad}; !reflect.DeepEqual(got, want) {
		t.Errorf("navigations = %v, want %v", got, want)
	}
	if _, created, closed, _ := session.counts(); created != 1 || closed != 1 {
		t.Errorf("contexts created/closed = %d/%d, want 1/1", created, closed)
	}
}

func TestScrape_RetriesOnSamePage(t *testing.T) {
	page := newFakePage(testHTML, failFirst(okResponse(200, "text/html", "")))
	session := sessionFor(page)

	out, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 1000,
	})
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if out.PageError != "" {
		t.Errorf("PageError = %q, want empty for 200", out.PageError)
	}
	if got, want := page.Waits(), []WaitStrategy{WaitLoad, WaitNetworkIdle}; !reflect.DeepEqual(got, want) {
		t.Errorf("navigations = %v, want %v", got, want)
	}
	if _, created, closed, pages := session.counts(); created != 1 || closed != 1 || pages != 1 {
		t.Errorf("created/closed/pages = %d/%d/%d, want 1/1/1", created, closed, pages)
	}
}

func TestScrape_BothAttemptsFail(t *testing.T) {
	page := newFakePage(testHTML, alwaysFail)
	session := sessionFor(page)

	out, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 1000,
	})
	if err == nil {
		t.Fatalf("Scrape() = %+v, want error", out)
	}
	if code := models.CodeOf(err); code != models.ErrCodeScrapeFailed {
		t.Errorf("code = %q, want %q", code, models.ErrCodeScrapeFailed)
	}
	if !models.HasCode(err, models.ErrCodeNavigation) {
		t.Errorf("error should wrap the second attempt's navigation error: %v", err)
	}
	if !errors.Is(err, errNavFailed) {
		t.Errorf("error chain should reach the underlying failure: %v", err)
	}
	if got := len(page.Waits()); got != 2 {
		t.Errorf("navigations = %d, want exactly 2", got)
	}
	if _, created, closed, _ := session.counts(); created != 1 || closed != 1 {
		t.Errorf("contexts created/closed = %d/%d, want 1/1", created, closed)
	}
}

func TestScrape_InvalidURLTouchesNoBrowser(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "https://", "://x", "http//example.com"} {
		t.Run(raw, func(t *testing.T) {
			session := sessionFor(newFakePage(testHTML, nil))
			_, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{URL: raw})
			if code := models.CodeOf(err); code != models.ErrCodeInvalidURL {
				t.Fatalf("code = %q, want %q (err=%v)", code, models.ErrCodeInvalidURL, err)
			}
			if starts, created, _, _ := session.counts(); starts != 0 || created != 0 {
				t.Errorf("starts/created = %d/%d, want 0/0", starts, created)
			}
		})
	}
}

func TestScrape_LaunchErrorPropagates(t *testing.T) {
	launchErr := models.NewScrapeError(models.ErrCodeLaunch, "failed to launch browser", errors.New("no chromium"))
	session := sessionFor(newFakePage(testHTML, nil))
	session.startErr = launchErr

	_, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com"})
	if code := models.CodeOf(err); code != models.ErrCodeLaunch {
		t.Fatalf("code = %q, want %q", code, models.ErrCodeLaunch)
	}
	if _, created, _, _ := session.counts(); created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestScrape_PageErrorIffNon200(t *testing.T) {
	status := func(i int) *int { return &i }
	tests := []struct {
		name   string
		status *int
		want   string
	}{
		{"ok", status(200), ""},
		{"not found", status(404), "status error"},
		{"created", status(201), "status error"},
		{"no response", nil, "no response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage(testHTML, func(context.Context, int, WaitStrategy) (*Response, error) {
				if tt.status == nil {
					return nil, nil
				}
				return okResponse(*tt.status, "text/html", ""), nil
			})
			out, err := newTestScraper(sessionFor(page)).Scrape(context.Background(),
				&models.ScrapeRequest{URL: "https://example.com", Timeout: 1000})
			if err != nil {
				t.Fatalf("Scrape() error: %v", err)
			}
			if out.PageError != tt.want {
				t.Errorf("PageError = %q, want %q", out.PageError, tt.want)
			}
			if tt.status == nil && (out.StatusCode != nil || out.Headers != nil || out.ContentType != "") {
				t.Errorf("absent response should leave status/headers/contentType empty: %+v", out.NavigationResult)
			}
		})
	}
}

func TestScrape_ClassifierNotCalledFor200(t *testing.T) {
	called := false
	s := New(sessionFor(newFakePage(testHTML, nil)), func(*int) (string, bool) {
		called = true
		return "x", true
	})
	out, err := s.Scrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com", Timeout: 1000})
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if called || out.PageError != "" {
		t.Errorf("classifier called=%v pageError=%q, want not called for 200", called, out.PageError)
	}
}

func TestScrape_ContentExtraction(t *testing.T) {
	const raw = `{"b": 2, "a": "<x>"}`
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"json", "application/json", raw},
		{"json with charset", "application/json; charset=utf-8", raw},
		{"plain text", "text/plain", raw},
		{"html", "text/html", testHTML},
		{"no content type", "", testHTML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage(testHTML, func(context.Context, int, WaitStrategy) (*Response, error) {
				return okResponse(200, tt.contentType, raw), nil
			})
			out, err := newTestScraper(sessionFor(page)).Scrape(context.Background(),
				&models.ScrapeRequest{URL: "https://example.com/api", Timeout: 1000})
			if err != nil {
				t.Fatalf("Scrape() error: %v", err)
			}
			if out.Content != tt.want {
				t.Errorf("Content = %q, want %q", out.Content, tt.want)
			}
			if out.ContentType != tt.contentType {
				t.Errorf("ContentType = %q, want %q", out.ContentType, tt.contentType)
			}
		})
	}
}

func TestScrape_MissingSelectorTriggersSecondAttempt(t *testing.T) {
	page := newFakePage(testHTML, nil)
	session := sessionFor(page)

	_, err := newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 50, CheckSelector: "#absent",
	})
	if code := models.CodeOf(err); code != models.ErrCodeScrapeFailed {
		t.Fatalf("code = %q, want %q", code, models.ErrCodeScrapeFailed)
	}
	if !models.HasCode(err, models.ErrCodeSelectorNotFound) {
		t.Errorf("error should wrap SELECTOR_NOT_FOUND: %v", err)
	}
	if got, want := page.Waits(), []WaitStrategy{WaitLoad, WaitNetworkIdle}; !reflect.DeepEqual(got, want) {
		t.Errorf("navigations = %v, want %v", got, want)
	}
	if _, created, closed, _ := session.counts(); created != 1 || closed != 1 {
		t.Errorf("contexts created/closed = %d/%d, want 1/1", created, closed)
	}
}

func TestScrape_PresentSelector(t *testing.T) {
	page := newFakePage(testHTML, nil)
	out, err := newTestScraper(sessionFor(page)).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 1000, CheckSelector: "div#main",
	})
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if out.Content != testHTML {
		t.Errorf("Content = %q", out.Content)
	}
	if got := len(page.Waits()); got != 1 {
		t.Errorf("navigations = %d, want 1", got)
	}
}

func TestScrape_AppliesExtraHeaders(t *testing.T) {
	page := newFakePage(testHTML, nil)
	headers := map[string]string{"X-Test": "1", "Accept-Language": "fr"}
	if _, err := newTestScraper(sessionFor(page)).Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", Timeout: 1000, Headers: headers,
	}); err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if !reflect.DeepEqual(page.headers, headers) {
		t.Errorf("headers = %v, want %v", page.headers, headers)
	}
}

func TestScrape_ContextClosedOnPanic(t *testing.T) {
	page := newFakePage(testHTML, func(context.Context, int, WaitStrategy) (*Response, error) {
		panic("renderer crashed")
	})
	session := sessionFor(page)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_, _ = newTestScraper(session).Scrape(context.Background(), &models.ScrapeRequest{
			URL: "https://example.com", Timeout: 1000,
		})
	}()

	if _, created, closed, _ := session.counts(); created != 1 || closed != 1 {
		t.Errorf("contexts created/closed = %d/%d, want 1/1", created, closed)
	}
}

func TestScrape_ConcurrentRequestsOwnTheirContexts(t *testing.T) {
	session := &fakeSession{newPage: func() Page { return newFakePage(testHTML, failFirst(okResponse(200, "text/html", ""))) }}
	s := newTestScraper(session)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Scrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com", Timeout: 1000}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Scrape() error: %v", err)
	}
	if _, created, closed, _ := session.counts(); created != n || closed != n {
		t.Errorf("contexts created/closed = %d/%d, want %d/%d", created, closed, n, n)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://localhost:8080/path?q=1#frag", true},
		{"https://例え.jp/", true},
		{"about:blank", true},
		{"data:text/plain,hello", true},
		{"", false},
		{"example.com", false},
		{"/relative/path", false},
		{"https://", false},
		{"http://%zz", false},
		{"mailto:", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err == nil) != tt.valid {
				t.Errorf("ValidateURL(%q) error = %v, want valid=%v", tt.url, err, tt.valid)
			}
		})
	}
}
