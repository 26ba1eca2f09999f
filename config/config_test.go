package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Browser.MaxPages)
	assert.Equal(t, 5*time.Second, cfg.Loader.SettleDelay)
	assert.Equal(t, 2*time.Second, cfg.Loader.ScrollDelay)
	assert.Equal(t, 200, cfg.Loader.MaxScrolls)
	assert.False(t, cfg.Loader.RequireStable)
	assert.Equal(t, []string{"Font", "Media"}, cfg.Loader.BlockedResourceTypes)
	assert.Equal(t, "sequence", cfg.Media.Naming)
	assert.Equal(t, 4, cfg.Media.Workers)
	assert.Equal(t, "silent", cfg.Log.Level)
	assert.Empty(t, cfg.Webhook.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROWLOG_MAX_SCROLLS", "12")
	t.Setenv("GROWLOG_SCROLL_DELAY", "250ms")
	t.Setenv("GROWLOG_REQUIRE_STABLE", "true")
	t.Setenv("GROWLOG_BLOCKED_RESOURCES", "Image, Font ,")
	t.Setenv("GROWLOG_PHOTO_RPS", "1.5")
	t.Setenv("GROWLOG_PHOTO_NAMING", "content")

	cfg := Load()

	assert.Equal(t, 12, cfg.Loader.MaxScrolls)
	assert.Equal(t, 250*time.Millisecond, cfg.Loader.ScrollDelay)
	assert.True(t, cfg.Loader.RequireStable)
	assert.Equal(t, []string{"Image", "Font"}, cfg.Loader.BlockedResourceTypes)
	assert.Equal(t, 1.5, cfg.Media.RequestsPerSecond)
	assert.Equal(t, "content", cfg.Media.Naming)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GROWLOG_MAX_PAGES", "many")
	t.Setenv("GROWLOG_HEADLESS", "maybe")
	t.Setenv("GROWLOG_SETTLE_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 2, cfg.Browser.MaxPages)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Loader.SettleDelay)
}
