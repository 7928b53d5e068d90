package browser

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/pagefetch/scraper"
)

// networkIdleQuiet is how long the network must stay quiet for the
// "networkidle" strategy.
const networkIdleQuiet = 500 * time.Millisecond

// rodPage adapts a rod page to scraper.Page.
type rodPage struct {
	page   *rod.Page
	logger *slog.Logger
}

func (p *rodPage) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(p.page.Context(ctx))
}

// Navigate loads rawURL and returns the main-frame document response.
//
// Both the response listener and the idle waiter are registered BEFORE
// Navigate; registering them afterwards would miss early events.
func (p *rodPage) Navigate(ctx context.Context, rawURL string, wait scraper.WaitStrategy) (*scraper.Response, error) {
	listenCtx, stop := context.WithCancel(ctx)
	defer stop()

	// ── Main document response ─────────────────────────────────────────
	var (
		mu  sync.Mutex
		doc *proto.NetworkResponseReceived
	)
	frameID := p.page.FrameID
	go p.page.Context(listenCtx).EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != frameID {
			return
		}
		mu.Lock()
		doc = e
		mu.Unlock()
	})()

	pg := p.page.Context(ctx)

	// ── Idle waiter ───────────────────────────────────────────────────
	var waitIdle func()
	if wait == scraper.WaitNetworkIdle {
		waitIdle = pg.WaitRequestIdle(networkIdleQuiet, nil, nil, nil)
	}

	// ── Navigate + wait ───────────────────────────────────────────────
	if err := pg.Navigate(rawURL); err != nil {
		return nil, err
	}
	if err := pg.WaitLoad(); err != nil {
		return nil, err
	}
	if waitIdle != nil {
		waitIdle()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	mu.Lock()
	ev := doc
	mu.Unlock()
	if ev == nil {
		p.logger.Debug("navigation produced no document response", "url", rawURL)
		return nil, nil
	}
	return p.toResponse(ev), nil
}

func (p *rodPage) toResponse(ev *proto.NetworkResponseReceived) *scraper.Response {
	headers := make(map[string]string, len(ev.Response.Headers))
	for k, v := range ev.Response.Headers {
		headers[strings.ToLower(k)] = v.Str()
	}

	page, requestID := p.page, ev.RequestID
	return &scraper.Response{
		Status:  ev.Response.Status,
		Headers: headers,
		Body: func(ctx context.Context) ([]byte, error) {
			res, err := proto.NetworkGetResponseBody{RequestID: requestID}.Call(page.Context(ctx))
			if err != nil {
				return nil, err
			}
			if res.Base64Encoded {
				return base64.StdEncoding.DecodeString(res.Body)
			}
			return []byte(res.Body), nil
		},
	}
}

// WaitSelector polls until an element matching selector exists.
func (p *rodPage) WaitSelector(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// toHeadersMap converts a plain string map to the gson-backed
// proto.NetworkHeaders required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
