package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/pagefetch/scraper"
)

// Viewport applied to every page.
const (
	viewportWidth  = 1280
	viewportHeight = 800
)

// rodContext is one incognito browser context. It owns every page, hijack
// router and event listener created inside it.
type rodContext struct {
	browser *rod.Browser
	engine  *rodEngine
	logger  *slog.Logger

	mu      sync.Mutex
	routers []*rod.HijackRouter
	cancels []context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewPage opens a tab inside the context. Identity, stealth, request
// filtering and proxy auth are applied before any navigation.
//
// Setup order:
//
//  1. Create target           – bound to this browser context
//  2. Identity                – random UA + fixed viewport
//  3. Stealth                 – must precede navigation
//  4. Network domain          – extra headers and response events need it
//  5. Request filter          – Fetch-domain hijack router
//  6. Proxy auth              – answers proxy challenges only
func (c *rodContext) NewPage(ctx context.Context) (scraper.Page, error) {
	// ── 1. Target ─────────────────────────────────────────────────────
	page, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	listenCtx, cancel := context.WithCancel(context.Background())
	c.track(nil, cancel)
	page = page.Context(listenCtx)

	// ── 2. Identity ───────────────────────────────────────────────────
	ua := c.engine.userAgent()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	// ── 3. Stealth ────────────────────────────────────────────────────
	if c.engine.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			c.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	// ── 4. Network ────────────────────────────────────────────────────
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	// ── 5. Request filter ─────────────────────────────────────────────
	router, err := installFilter(page, c.engine.filter, c.logger)
	if err != nil {
		return nil, fmt.Errorf("install request filter: %w", err)
	}
	c.track(router, nil)

	// ── 6. Proxy auth ─────────────────────────────────────────────────
	if proxy := c.engine.cfg.Proxy; proxy.Server != "" && proxy.HasCredentials() {
		if err := handleProxyAuth(page, proxy.Username, proxy.Password); err != nil {
			return nil, fmt.Errorf("enable proxy auth: %w", err)
		}
	}

	c.logger.Debug("page ready", "userAgent", ua)
	return &rodPage{page: page, logger: c.logger}, nil
}

func (c *rodContext) track(router *rod.HijackRouter, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if router != nil {
		c.routers = append(c.routers, router)
	}
	if cancel != nil {
		c.cancels = append(c.cancels, cancel)
	}
}

// Close stops routers and listeners, then disposes the browser context,
// which closes all of its pages. Safe to call more than once.
func (c *rodContext) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		routers, cancels := c.routers, c.cancels
		c.routers, c.cancels = nil, nil
		c.mu.Unlock()

		for _, r := range routers {
			if err := r.Stop(); err != nil {
				c.logger.Debug("hijack router stop failed", "error", err)
			}
		}
		for _, cancel := range cancels {
			cancel()
		}
		if err := c.browser.Close(); err != nil {
			c.closeErr = fmt.Errorf("dispose browser context: %w", err)
		}
	})
	return c.closeErr
}
