package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Filter    FilterConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds how long in-flight HTTP requests may drain
	// before the browser is torn down.
	ShutdownTimeout time.Duration // default: 5s
}

// BrowserConfig controls the Chromium process and the browsing contexts
// created inside it.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects go-rod/stealth evasions into every page.
	Stealth bool // default: false

	// Proxy is applied per browsing context, not per process.
	Proxy ProxyConfig
}

// ProxyConfig describes the outbound proxy for browsing contexts.
// Credentials are only used when both Username and Password are set.
type ProxyConfig struct {
	Server   string
	Username string
	Password string
}

// HasCredentials reports whether both proxy credentials are present.
func (p ProxyConfig) HasCredentials() bool {
	return p.Username != "" && p.Password != ""
}

// FilterConfig controls per-context request interception.
type FilterConfig struct {
	// BlockMedia aborts image/audio/video requests by file extension.
	BlockMedia bool // default: false
}

// AuthConfig controls API key authentication on /scrape.
type AuthConfig struct {
	// APIKeys is the list of valid API keys. Empty disables auth.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting on /scrape.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client. 0 disables limiting.
	RequestsPerSecond float64 // default: 0

	// Burst is the maximum burst size per client.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// File, when set, receives a copy of every log line with size-based rotation.
	File      string
	MaxSizeMB int // default: 100
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            envOr("HOST", "0.0.0.0"),
			Port:            envIntOr("PORT", 3000),
			Mode:            envOr("GIN_MODE", "release"),
			ShutdownTimeout: envDurationOr("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("HEADLESS", true),
			BrowserBin: os.Getenv("BROWSER_BIN"),
			Stealth:    envBoolOr("STEALTH", false),
			Proxy: ProxyConfig{
				Server:   os.Getenv("PROXY_SERVER"),
				Username: os.Getenv("PROXY_USERNAME"),
				Password: os.Getenv("PROXY_PASSWORD"),
			},
		},
		Filter: FilterConfig{
			BlockMedia: envBoolOr("BLOCK_MEDIA", false),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RATE_LIMIT_RPS", 0),
			Burst:             envIntOr("RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:     envOr("LOG_LEVEL", "info"),
			Format:    envOr("LOG_FORMAT", "json"),
			File:      os.Getenv("LOG_FILE"),
			MaxSizeMB: envIntOr("LOG_MAX_SIZE_MB", 100),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envBoolOr also accepts "yes"/"no", which strconv.ParseBool rejects.
func envBoolOr(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
