package scraper

import (
	"context"
	"errors"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/growlog/models"
	"github.com/ysmood/gson"
)

// Load navigates a pooled page to target and scrolls until the document
// stops growing.
//
// Lifecycle:
//
//  1. Acquire page           – borrow a tab from the pool (exclusive to this run)
//  2. Stealth injection      – before navigation, or it has no effect
//  3. Headers + hijack       – Referer, resource/ad blocking
//  4. Navigate               – bounded by NavigationTimeout
//  5. Settle                 – fixed delay for the first paint
//  6. Stabilise              – scroll-to-bottom loop, bounded
//  7. Snapshot               – page.HTML() + document.title + location
//
// On success the page stays borrowed until Document.Close. On any failure
// it is released before Load returns.
func (s *Scraper) Load(ctx context.Context, target string) (*Document, error) {
	// ── 1. Acquire page from pool ─────────────────────────────────────
	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}
	s.activePages.Add(1)

	var router *rod.HijackRouter
	release := func() {
		if router != nil {
			_ = router.Stop()
		}
		// The original page reference carries no request context, so the
		// cleanup still works after ctx has expired.
		if navErr := page.Navigate("about:blank"); navErr != nil {
			s.logger.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
		s.activePages.Add(-1)
	}
	doc := &Document{release: release}
	ok := false
	defer func() {
		if !ok {
			doc.Close()
		}
	}()

	// ── 2. Stealth injection ──────────────────────────────────────────
	if s.loaderCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			s.logger.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 3. Headers + hijack ───────────────────────────────────────────
	if u, parseErr := url.Parse(target); parseErr == nil && u.Hostname() != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}
	router = setupHijack(page, s.loaderCfg.BlockedResourceTypes, s.loaderCfg.BlockAds)

	// ── 4. Navigate ───────────────────────────────────────────────────
	s.logger.Info("loading page", "url", target)
	navCtx, navCancel := context.WithCancel(ctx)
	if s.loaderCfg.NavigationTimeout > 0 {
		navCancel()
		navCtx, navCancel = context.WithTimeout(ctx, s.loaderCfg.NavigationTimeout)
	}
	navErr := page.Context(navCtx).Navigate(target)
	if navErr == nil {
		navErr = page.Context(navCtx).WaitLoad()
	}
	navCancel()
	if navErr != nil {
		return nil, categorizeError(ctx, navErr, "navigation to target URL failed")
	}

	p := page.Context(ctx)

	// ── 5. Settle ─────────────────────────────────────────────────────
	if err := sleepCtx(ctx, s.loaderCfg.SettleDelay); err != nil {
		return nil, categorizeError(ctx, err, "run canceled while settling")
	}

	// ── 6. Stabilise ──────────────────────────────────────────────────
	scrolls, stabErr := stabilize(ctx, rodTarget{page: p}, stabilizeOptions{
		delay:      s.loaderCfg.ScrollDelay,
		maxScrolls: s.loaderCfg.MaxScrolls,
		timeout:    s.loaderCfg.StabilizeTimeout,
	}, s.logger)
	doc.Scrolls = scrolls
	doc.Stabilized = stabErr == nil
	switch {
	case stabErr == nil:
	case errors.Is(stabErr, ErrNotStabilized) && !s.loaderCfg.RequireStable:
		s.logger.Warn("document did not stabilize, extracting what was loaded",
			"url", target, "scrolls", scrolls, "error", stabErr)
	case errors.Is(stabErr, ErrNotStabilized):
		return nil, models.NewScrapeError(models.ErrCodeNotStabilized, "document kept growing", stabErr)
	default:
		return nil, categorizeError(ctx, stabErr, "scrolling the document failed")
	}

	// ── 7. Snapshot ───────────────────────────────────────────────────
	html, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(ctx, htmlErr, "failed to extract page HTML")
	}
	doc.HTML = html
	doc.Title = evalStringOrEmpty(p, `() => document.title`)
	doc.FinalURL = evalStringOrEmpty(p, `() => window.location.href`)
	if doc.FinalURL == "" {
		doc.FinalURL = target
	}

	s.logger.Info("page loaded", "url", doc.FinalURL, "scrolls", scrolls, "stabilized", doc.Stabilized)
	ok = true
	return doc, nil
}

// rodTarget adapts a rod page to the stabilisation loop.
type rodTarget struct {
	page *rod.Page
}

func (t rodTarget) Extent(ctx context.Context) (int, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.body ? document.body.scrollHeight : 0`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (t rodTarget) ScrollToBottom(ctx context.Context) error {
	_, err := t.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors. A deadline on the
// caller's context is a timeout; any other failure to reach the page is a
// navigation failure.
func categorizeError(ctx context.Context, err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "run canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
