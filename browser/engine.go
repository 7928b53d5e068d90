package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/pagefetch/config"
	"github.com/use-agent/pagefetch/filter"
	"github.com/use-agent/pagefetch/scraper"
)

// rodEngine is a Chromium process driven over CDP.
type rodEngine struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	cfg       config.BrowserConfig
	filter    *filter.Filter
	userAgent func() string
	logger    *slog.Logger
}

// RodLauncher returns a LaunchFunc that starts a local Chromium suited to
// unattended container use.
func RodLauncher(cfg config.BrowserConfig, f *filter.Filter, userAgent func() string, logger *slog.Logger) LaunchFunc {
	return func(ctx context.Context) (Engine, error) {
		l := launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			NoSandbox(true)
		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}

		// ── Unattended flags ────────────────────────────────────────────
		l.Set(flags.Flag("disable-gpu"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("no-first-run"))
		l.Set(flags.Flag("disable-default-apps"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("disable-component-update"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))

		// ── Stealth flags ───────────────────────────────────────────────
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))

		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("start chromium: %w", err)
		}
		logger.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			l.Kill()
			return nil, fmt.Errorf("connect to chromium: %w", err)
		}

		return &rodEngine{
			browser:   b,
			launcher:  l,
			cfg:       cfg,
			filter:    f,
			userAgent: userAgent,
			logger:    logger,
		}, nil
	}
}

// NewContext creates an incognito browser context. When a proxy is
// configured the context, not the process, routes through it.
func (e *rodEngine) NewContext(ctx context.Context) (scraper.BrowsingContext, error) {
	req := proto.TargetCreateBrowserContext{DisposeOnDetach: true}
	if e.cfg.Proxy.Server != "" {
		req.ProxyServer = e.cfg.Proxy.Server
	}
	res, err := req.Call(e.browser.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	incognito := *e.browser
	incognito.BrowserContextID = res.BrowserContextID

	return &rodContext{
		browser: &incognito,
		engine:  e,
		logger:  e.logger.With("browserContext", res.BrowserContextID),
	}, nil
}

// Close terminates the browser and removes its profile directory.
func (e *rodEngine) Close() error {
	err := e.browser.Close()
	e.launcher.Cleanup()
	return err
}
