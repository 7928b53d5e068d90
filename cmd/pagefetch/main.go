package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/use-agent/pagefetch/api"
	"github.com/use-agent/pagefetch/browser"
	"github.com/use-agent/pagefetch/config"
	"github.com/use-agent/pagefetch/filter"
	"github.com/use-agent/pagefetch/pageerror"
	"github.com/use-agent/pagefetch/scraper"
)

// startupLaunchTimeout bounds the eager launch; a slower launch is retried
// lazily by the first request.
const startupLaunchTimeout = 60 * time.Second

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	closeLog := initLogger(cfg.Log)
	defer closeLog()
	slog.Info("pagefetch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"blockMedia", cfg.Filter.BlockMedia,
		"proxy", cfg.Browser.Proxy.Server != "",
	)

	// ── 3. Browser session ──────────────────────────────────────────
	f := filter.New(cfg.Filter.BlockMedia)
	slog.Info("request filter ready", "rules", f.Rules())

	mgr := browser.NewManager(cfg.Browser, f, browser.WithLogger(slog.Default()))
	launchCtx, cancelLaunch := context.WithTimeout(context.Background(), startupLaunchTimeout)
	if err := mgr.EnsureStarted(launchCtx); err != nil {
		slog.Error("browser launch at startup failed, will retry on first request", "error", err)
	}
	cancelLaunch()

	// ── 4. Scraper ──────────────────────────────────────────────────
	sc := scraper.New(mgr, pageerror.Classify, scraper.WithLogger(slog.Default()))

	// ── 5. Setup router ─────────────────────────────────────────────
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	router := api.NewRouter(bgCtx, sc, cfg)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	cancel()

	// In-flight browsing contexts die with the browser.
	if err := mgr.Shutdown(); err != nil {
		slog.Error("browser shutdown failed", "error", err)
	}
	slog.Info("pagefetch stopped")

	if exitCode != 0 {
		closeLog()
		os.Exit(exitCode)
	}
}

// initLogger configures slog based on the LogConfig. When a log file is
// configured every line is also written there with size-based rotation.
// The returned func flushes and closes the file.
func initLogger(cfg config.LogConfig) func() {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closeFn
}
