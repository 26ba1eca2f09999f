// Package media resolves photo references to durable local files.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/growlog/cache"
	"github.com/use-agent/growlog/config"
	"github.com/use-agent/growlog/models"
	"golang.org/x/sync/singleflight"
)

// Filename schemes.
const (
	// NamingSequence names files photo_<unix-ms>_<counter>.<ext>.
	NamingSequence = "sequence"

	// NamingContent names files <hh>/<sha256>.<ext> after the body.
	NamingContent = "content"
)

const defaultMaxBytes = 10 << 20

// Acquirer downloads photos with bounded concurrency. A single Acquirer is
// meant to be shared by every event of a run so the worker bound holds
// across events.
type Acquirer struct {
	cfg    config.MediaConfig
	client *http.Client
	index  *cache.Cache
	limits *hostLimiters
	sem    chan struct{}
	flight singleflight.Group
	seq    atomic.Int64
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithHTTPClient replaces the Chrome-fingerprint client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Acquirer) { a.client = c }
}

// WithIndex shares a URL → path index between acquirers.
func WithIndex(c *cache.Cache) Option {
	return func(a *Acquirer) { a.index = c }
}

// WithClock sets the time source used for sequence names.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) { a.now = now }
}

// NewAcquirer validates cfg and prepares the photo directory.
func NewAcquirer(cfg config.MediaConfig, logger *slog.Logger, opts ...Option) (*Acquirer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch cfg.Naming {
	case "":
		cfg.Naming = NamingSequence
	case NamingSequence, NamingContent:
	default:
		return nil, fmt.Errorf("media: unknown naming scheme %q", cfg.Naming)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create photo dir: %w", err)
	}

	a := &Acquirer{
		cfg:    cfg,
		limits: newHostLimiters(cfg.RequestsPerSecond, cfg.Burst),
		sem:    make(chan struct{}, cfg.Workers),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		client, err := newChromeClient()
		if err != nil {
			return nil, err
		}
		a.client = client
	}
	if a.index == nil {
		a.index = cache.New(0, 0)
	}
	return a, nil
}

// Acquire resolves each photo to a local path. Photos run concurrently,
// bounded by the shared worker limit. A photo that fails is logged and
// left out of the result; the rest keep their input order.
func (a *Acquirer) Acquire(ctx context.Context, photos []models.Photo, referer string) []models.Photo {
	if len(photos) == 0 {
		return nil
	}

	results := make([]models.Photo, len(photos))
	ok := make([]bool, len(photos))
	var wg sync.WaitGroup
	for i, p := range photos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local, err := a.acquire(ctx, p.URL, referer)
			if err != nil {
				a.logger.Warn("photo dropped", "url", p.URL, "error", err)
				return
			}
			results[i] = models.Photo{URL: p.URL, LocalPath: local}
			ok[i] = true
		}()
	}
	wg.Wait()

	out := results[:0]
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	return out
}

// acquire collapses concurrent requests for the same URL into one download.
func (a *Acquirer) acquire(ctx context.Context, rawURL, referer string) (string, error) {
	key := cache.Key(rawURL)
	v, err, shared := a.flight.Do(key, func() (any, error) {
		return a.fetch(ctx, key, rawURL, referer)
	})
	if err != nil {
		return "", err
	}
	if shared {
		a.logger.Debug("photo download shared", "url", rawURL)
	}
	return v.(string), nil
}

func (a *Acquirer) fetch(ctx context.Context, key, rawURL, referer string) (string, error) {
	if local, ok := a.index.Get(key); ok {
		if fileExists(local) {
			return local, nil
		}
		a.index.Delete(key)
	}

	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-a.sem }()

	var local string
	if a.cfg.Naming == NamingSequence {
		local = filepath.Join(a.cfg.Dir, a.sequenceName(extFromURL(rawURL)))
		if fileExists(local) {
			a.logger.Debug("photo already on disk", "url", rawURL, "path", local)
			a.index.Set(key, local)
			return local, nil
		}
	}

	if err := a.limits.wait(ctx, rawURL); err != nil {
		return "", err
	}

	dctx, cancel := ctx, context.CancelFunc(func() {})
	if a.cfg.DownloadTimeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, a.cfg.DownloadTimeout)
	}
	body, contentType, err := download(dctx, a.client, rawURL, referer, a.cfg.MaxBytes)
	cancel()
	if err != nil {
		return "", err
	}

	if a.cfg.Naming == NamingContent {
		ext := extFromContentType(contentType)
		if ext == "" {
			ext = extFromURL(rawURL)
		}
		local = filepath.Join(a.cfg.Dir, contentName(body, ext))
		if fileExists(local) {
			a.index.Set(key, local)
			return local, nil
		}
	}

	if err := writeAtomic(local, body); err != nil {
		return "", err
	}
	a.index.Set(key, local)
	a.logger.Debug("photo stored", "url", rawURL, "path", local, "bytes", len(body))
	return local, nil
}

// sequenceName derives the next collision-free sequence filename.
func (a *Acquirer) sequenceName(ext string) string {
	n := a.seq.Add(1)
	return fmt.Sprintf("photo_%d_%d%s", a.now().UnixMilli(), n, ext)
}

// contentName derives a filename from the body digest, fanned out by the
// first two hex characters.
func contentName(body []byte, ext string) string {
	sum := sha256.Sum256(body)
	h := hex.EncodeToString(sum[:])
	return filepath.Join(h[:2], h+ext)
}

var imageExts = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
	".avif": ".avif",
}

// extFromURL returns the image extension of the URL path, or ".jpg".
func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if ext, ok := imageExts[strings.ToLower(path.Ext(u.Path))]; ok {
			return ext
		}
	}
	return ".jpg"
}

func extFromContentType(ct string) string {
	switch ct {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	default:
		return ""
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// writeAtomic writes data next to dst and renames it into place so a
// partially written photo is never visible under its final name.
func writeAtomic(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".photo-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
