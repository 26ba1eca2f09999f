package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Loader  LoaderConfig
	Media   MediaConfig
	Log     LogConfig
	Webhook WebhookConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity. Each run holds one page exclusively.
	MaxPages int // default: 2

	// DefaultProxy is the proxy URL used for browser traffic.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// LoaderConfig controls navigation and the scroll-to-end stabilisation loop.
type LoaderConfig struct {
	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// SettleDelay is the fixed wait after navigation for the first paint.
	SettleDelay time.Duration // default: 5s

	// ScrollDelay is the fixed wait after each scroll-to-bottom.
	ScrollDelay time.Duration // default: 2s

	// MaxScrolls bounds the stabilisation loop.
	MaxScrolls int // default: 200

	// StabilizeTimeout bounds the wall time of the stabilisation loop.
	StabilizeTimeout time.Duration // default: 5m

	// RequireStable turns a "did not stabilize" outcome into a fatal error.
	RequireStable bool // default: false

	// Stealth masks navigator.webdriver and friends before navigation.
	Stealth bool // default: true

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// MediaConfig controls photo acquisition.
type MediaConfig struct {
	// Dir is where acquired photos are stored.
	Dir string // default: "output/photos"

	// Disabled skips acquisition; photos keep only their remote URL.
	Disabled bool // default: false

	// Naming selects the filename scheme: "sequence" or "content".
	Naming string // default: "sequence"

	// Workers bounds concurrent downloads across all events of a run.
	Workers int // default: 4

	// RequestsPerSecond is the sustained request rate per origin host.
	RequestsPerSecond float64 // default: 4

	// Burst is the maximum burst size per origin host.
	Burst int // default: 4

	// DownloadTimeout is the deadline for a single photo.
	DownloadTimeout time.Duration // default: 30s

	// MaxBytes caps a single photo body.
	MaxBytes int64 // default: 10 MiB
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // "silent", "debug", "info", "warn", "error"; default: "silent"
	Format string // "json" or "text"; default: "text"
}

// WebhookConfig controls the optional completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     envBoolOr("GROWLOG_HEADLESS", true),
			MaxPages:     envIntOr("GROWLOG_MAX_PAGES", 2),
			DefaultProxy: os.Getenv("GROWLOG_PROXY"),
			NoSandbox:    envBoolOr("GROWLOG_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("GROWLOG_BROWSER_BIN"),
		},
		Loader: LoaderConfig{
			NavigationTimeout: envDurationOr("GROWLOG_NAV_TIMEOUT", 30*time.Second),
			SettleDelay:       envDurationOr("GROWLOG_SETTLE_DELAY", 5*time.Second),
			ScrollDelay:       envDurationOr("GROWLOG_SCROLL_DELAY", 2*time.Second),
			MaxScrolls:        envIntOr("GROWLOG_MAX_SCROLLS", 200),
			StabilizeTimeout:  envDurationOr("GROWLOG_STABILIZE_TIMEOUT", 5*time.Minute),
			RequireStable:     envBoolOr("GROWLOG_REQUIRE_STABLE", false),
			Stealth:           envBoolOr("GROWLOG_STEALTH", true),
			BlockAds:          envBoolOr("GROWLOG_BLOCK_ADS", true),
			BlockedResourceTypes: envSliceOr("GROWLOG_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Media: MediaConfig{
			Dir:               envOr("GROWLOG_PHOTOS_DIR", "output/photos"),
			Disabled:          envBoolOr("GROWLOG_NO_PHOTOS", false),
			Naming:            envOr("GROWLOG_PHOTO_NAMING", "sequence"),
			Workers:           envIntOr("GROWLOG_PHOTO_WORKERS", 4),
			RequestsPerSecond: envFloatOr("GROWLOG_PHOTO_RPS", 4.0),
			Burst:             envIntOr("GROWLOG_PHOTO_BURST", 4),
			DownloadTimeout:   envDurationOr("GROWLOG_PHOTO_TIMEOUT", 30*time.Second),
			MaxBytes:          int64(envIntOr("GROWLOG_PHOTO_MAX_BYTES", 10*1024*1024)),
		},
		Log: LogConfig{
			Level:  envOr("GROWLOG_LOG_LEVEL", "silent"),
			Format: envOr("GROWLOG_LOG_FORMAT", "text"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("GROWLOG_WEBHOOK_URL"),
			Secret: os.Getenv("GROWLOG_WEBHOOK_SECRET"),
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

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
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
