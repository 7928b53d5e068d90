// Package browser owns the long-lived Chromium process and hands out
// isolated browsing contexts with request filtering, proxy routing and a
// randomized identity already applied.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/use-agent/pagefetch/config"
	"github.com/use-agent/pagefetch/filter"
	"github.com/use-agent/pagefetch/models"
	"github.com/use-agent/pagefetch/scraper"
)

var (
	// ErrNotStarted is returned by NewContext before a successful launch.
	ErrNotStarted = errors.New("browser: not started")

	// ErrClosed is returned by every operation after Shutdown.
	ErrClosed = errors.New("browser: manager is shut down")
)

// Engine is a running browser process.
type Engine interface {
	NewContext(ctx context.Context) (scraper.BrowsingContext, error)
	Close() error
}

// LaunchFunc starts a browser process. It is called at most once per
// successful launch; failed launches are retried by the next caller.
type LaunchFunc func(ctx context.Context) (Engine, error)

// Manager implements scraper.Session. All methods are safe for concurrent use.
type Manager struct {
	launch    LaunchFunc
	userAgent func() string
	logger    *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	engine Engine
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLauncher replaces the rod launcher, mostly for tests.
func WithLauncher(fn LaunchFunc) Option {
	return func(m *Manager) { m.launch = fn }
}

// WithUserAgent replaces the per-page user-agent generator used by the
// default rod launcher. Default: RandomUserAgent.
func WithUserAgent(fn func() string) Option {
	return func(m *Manager) { m.userAgent = fn }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. No browser is launched until EnsureStarted.
func NewManager(cfg config.BrowserConfig, f *filter.Filter, opts ...Option) *Manager {
	m := &Manager{userAgent: RandomUserAgent, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	if m.launch == nil {
		m.launch = RodLauncher(cfg, f, m.userAgent, m.logger)
	}
	return m
}

// EnsureStarted launches the browser if it is not running. Concurrent
// callers share one launch. A failed launch is not cached.
func (m *Manager) EnsureStarted(ctx context.Context) error {
	m.mu.RLock()
	running, closed := m.engine != nil, m.closed
	m.mu.RUnlock()
	if closed {
		return models.NewScrapeError(models.ErrCodeLaunch, "browser is shut down", ErrClosed)
	}
	if running {
		return nil
	}

	ch := m.group.DoChan("launch", func() (any, error) {
		return nil, m.start(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return models.NewScrapeError(models.ErrCodeLaunch, "gave up waiting for browser launch", ctx.Err())
	}
}

func (m *Manager) start(ctx context.Context) error {
	m.mu.RLock()
	running, closed := m.engine != nil, m.closed
	m.mu.RUnlock()
	if closed {
		return models.NewScrapeError(models.ErrCodeLaunch, "browser is shut down", ErrClosed)
	}
	if running {
		return nil
	}

	m.logger.Info("launching browser")
	eng, err := m.launch(ctx)
	if err != nil {
		m.logger.Error("browser launch failed", "error", err)
		return models.NewScrapeError(models.ErrCodeLaunch, "failed to launch browser", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = eng.Close()
		return models.NewScrapeError(models.ErrCodeLaunch, "browser is shut down", ErrClosed)
	}
	m.engine = eng
	m.mu.Unlock()

	m.logger.Info("browser ready")
	return nil
}

// NewContext creates a fresh browsing context on the running browser.
func (m *Manager) NewContext(ctx context.Context) (scraper.BrowsingContext, error) {
	m.mu.RLock()
	eng, closed := m.engine, m.closed
	m.mu.RUnlock()
	switch {
	case closed:
		return nil, ErrClosed
	case eng == nil:
		return nil, ErrNotStarted
	}
	return eng.NewContext(ctx)
}

// Running reports whether a browser process is up.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine != nil
}

// Shutdown closes the browser. It is idempotent and safe to call when the
// browser never started. Later EnsureStarted calls fail with ErrClosed.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	eng := m.engine
	m.engine = nil
	m.mu.Unlock()

	if eng == nil {
		return nil
	}
	m.logger.Info("browser shutting down")
	if err := eng.Close(); err != nil {
		m.logger.Warn("browser close failed", "error", err)
		return err
	}
	m.logger.Info("browser shutdown complete")
	return nil
}
