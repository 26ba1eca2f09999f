// Package engine runs one extraction end to end: load, extract, acquire
// photos, reconcile.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/use-agent/growlog/extract"
	"github.com/use-agent/growlog/models"
	"github.com/use-agent/growlog/scraper"
	"github.com/use-agent/growlog/timeline"
	"github.com/use-agent/growlog/webhook"
)

// Loader produces a stabilised, rendered document. The caller owns the
// returned Document and must Close it.
type Loader interface {
	Load(ctx context.Context, target string) (*scraper.Document, error)
}

// PhotoAcquirer resolves photo references to local files, dropping the
// ones that fail.
type PhotoAcquirer interface {
	Acquire(ctx context.Context, photos []models.Photo, referer string) []models.Photo
}

// Notifier is told about every finished run.
type Notifier interface {
	Send(ctx context.Context, event *webhook.Event) error
}

// Engine wires the loader, extractors, media acquirer and reconciliation.
type Engine struct {
	loader   Loader
	media    PhotoAcquirer
	notifier Notifier
	logger   *slog.Logger
	newID    func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMedia enables photo acquisition.
func WithMedia(m PhotoAcquirer) Option {
	return func(e *Engine) { e.media = m }
}

// WithNotifier sends completion events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine around loader.
func New(loader Loader, opts ...Option) *Engine {
	e := &Engine{
		loader: loader,
		logger: slog.New(slog.DiscardHandler),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one extraction. Fatal failures (bad input, unreachable
// target, browser failure) return a *models.ScrapeError; anything local to
// one record or photo is logged, counted in the report stats and skipped.
func (e *Engine) Run(ctx context.Context, req models.ExtractRequest) (*models.Report, error) {
	start := time.Now()
	runID := e.newID()
	req.Normalize()
	logger := e.logger.With("run_id", runID, "url", req.URL)

	if err := req.Validate(); err != nil {
		e.notifyFailed(ctx, runID, err, logger)
		return nil, err
	}

	logger.Info("run started")
	report, err := e.run(ctx, runID, req, logger)
	if err != nil {
		logger.Error("run failed", "error", err)
		e.notifyFailed(ctx, runID, err, logger)
		return nil, err
	}
	report.Stats.DurationMs = time.Since(start).Milliseconds()

	logger.Info("run completed",
		"entries", len(report.Entries),
		"activities_dropped", report.Stats.ActivitiesDropped,
		"stage_changes_dropped", report.Stats.StageChangesDropped,
		"photos_dropped", report.Stats.PhotosDropped,
		"unresolved", report.Stats.UnresolvedEntries,
		"duration_ms", report.Stats.DurationMs,
	)
	e.notify(ctx, &webhook.Event{
		Type:      webhook.EventCompleted,
		RunID:     runID,
		Timestamp: time.Now().Unix(),
		Data:      webhook.Summarize(report),
	}, logger)
	return report, nil
}

func (e *Engine) run(ctx context.Context, runID string, req models.ExtractRequest, logger *slog.Logger) (*models.Report, error) {
	doc, err := e.loader.Load(ctx, req.URL)
	if err != nil {
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "load failed", err)
	}
	defer doc.Close()

	report, stages, activities, err := e.extractDocument(doc, req, logger)
	if err != nil {
		return nil, err
	}
	report.RunID = runID
	report.URL = req.URL

	// The session is not needed past extraction.
	doc.Close()

	if e.media != nil && !req.SkipPhotos {
		e.acquirePhotos(ctx, doc.FinalURL, activities, report)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "run canceled", err)
	}

	res := timeline.Reconcile(stages, activities)
	report.Entries = res.Entries
	report.Stats.UndatedEntries = res.Undated
	report.Stats.UnresolvedEntries = res.Unresolved
	return report, nil
}

// extractDocument turns the rendered HTML into events and metadata.
func (e *Engine) extractDocument(doc *scraper.Document, req models.ExtractRequest, logger *slog.Logger) (*models.Report, []models.StageChangeEvent, []models.ActivityEvent, error) {
	parsed, err := extract.Parse(doc.HTML)
	if err != nil {
		return nil, nil, nil, models.NewScrapeError(models.ErrCodeExtraction, "rendered document could not be parsed", err)
	}
	base, err := url.Parse(doc.FinalURL)
	if err != nil {
		base, _ = url.Parse(req.URL)
	}

	groups := extract.Partition(parsed)
	report := &models.Report{
		Stats: models.RunStats{
			ActivitiesFound:   groups.Activities.Length(),
			StageChangesFound: groups.StageChanges.Length(),
			Scrolls:           doc.Scrolls,
			Stabilized:        doc.Stabilized,
		},
	}

	var stages []models.StageChangeEvent
	groups.StageChanges.Each(func(i int, s *goquery.Selection) {
		ev, err := extract.StageChange(s)
		if err != nil {
			report.Stats.StageChangesDropped++
			logger.Warn("stage change dropped", "index", i, "error", err)
			return
		}
		stages = append(stages, ev)
	})

	var activities []models.ActivityEvent
	groups.Activities.Each(func(i int, s *goquery.Selection) {
		ev, err := extract.Activity(s, base)
		if err != nil {
			report.Stats.ActivitiesDropped++
			logger.Warn("activity dropped", "index", i, "error", err)
			return
		}
		activities = append(activities, ev)
	})

	md := extract.Metadata(groups.Panel)
	md.Title = pickTitle(req.Title, groups, doc.Title)
	for _, g := range md.Defaulted {
		logger.Warn("metadata group not found, using defaults", "group", g)
	}
	report.Metadata = md
	report.Title = md.Title
	report.Photos = extract.GalleryPhotos(groups.Root, base)

	logger.Debug("document extracted",
		"stage_changes", len(stages),
		"activities", len(activities),
		"gallery_photos", len(report.Photos),
	)
	return report, stages, activities, nil
}

// acquirePhotos downloads every event's photos, one goroutine per event.
// The acquirer bounds how many downloads run at once.
func (e *Engine) acquirePhotos(ctx context.Context, referer string, activities []models.ActivityEvent, report *models.Report) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
		dropped  int
	)
	count := func(in, out int) {
		mu.Lock()
		acquired += out
		dropped += in - out
		mu.Unlock()
	}

	for i := range activities {
		if len(activities[i].Photos) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := activities[i].Photos
			out := e.media.Acquire(ctx, in, referer)
			activities[i].Photos = out
			count(len(in), len(out))
		}()
	}
	if len(report.Photos) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := report.Photos
			out := e.media.Acquire(ctx, in, referer)
			report.Photos = out
			count(len(in), len(out))
		}()
	}
	wg.Wait()

	report.Stats.PhotosAcquired = acquired
	report.Stats.PhotosDropped = dropped
}

func pickTitle(override string, groups extract.Groups, loaderTitle string) string {
	if override != "" {
		return override
	}
	if t, ok := extract.Title(groups.Root); ok {
		return t
	}
	if loaderTitle != "" {
		return loaderTitle
	}
	return extract.DefaultTitle
}

func (e *Engine) notifyFailed(ctx context.Context, runID string, err error, logger *slog.Logger) {
	detail := &models.ErrorDetail{Code: models.CodeOf(err), Message: err.Error()}
	var se *models.ScrapeError
	if errors.As(err, &se) {
		detail = se.ToDetail()
	}
	e.notify(ctx, &webhook.Event{
		Type:      webhook.EventFailed,
		RunID:     runID,
		Timestamp: time.Now().Unix(),
		Data:      detail,
	}, logger)
}

func (e *Engine) notify(ctx context.Context, ev *webhook.Event, logger *slog.Logger) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn("completion notification failed", "event", ev.Type, "error", err)
	}
}
