package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotStabilized is returned when the page kept growing until the
// scroll or time bound was reached.
var ErrNotStabilized = errors.New("document did not stabilize")

// scrollTarget is the part of a live page the stabilisation loop needs.
type scrollTarget interface {
	// Extent returns the current document height in pixels.
	Extent(ctx context.Context) (int, error)

	// ScrollToBottom triggers the lazy loader.
	ScrollToBottom(ctx context.Context) error
}

// stabilizeOptions bounds one stabilisation loop.
type stabilizeOptions struct {
	delay      time.Duration
	maxScrolls int
	timeout    time.Duration
}

// stabilize scrolls to the bottom until the extent is unchanged between two
// consecutive measurements. It returns the number of scrolls that grew the
// page. Exhausting maxScrolls or timeout yields ErrNotStabilized; context
// cancellation from the caller is returned as is.
func stabilize(ctx context.Context, target scrollTarget, opts stabilizeOptions, logger *slog.Logger) (int, error) {
	loopCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	last, err := target.Extent(loopCtx)
	if err != nil {
		return 0, fmt.Errorf("measure extent: %w", err)
	}

	grew := 0
	for i := 0; opts.maxScrolls <= 0 || i < opts.maxScrolls; i++ {
		if err := target.ScrollToBottom(loopCtx); err != nil {
			return grew, boundOrErr(ctx, loopCtx, fmt.Errorf("scroll %d: %w", i, err))
		}
		if err := sleepCtx(loopCtx, opts.delay); err != nil {
			return grew, boundOrErr(ctx, loopCtx, err)
		}

		current, err := target.Extent(loopCtx)
		if err != nil {
			return grew, boundOrErr(ctx, loopCtx, fmt.Errorf("measure extent: %w", err))
		}
		if current == last {
			logger.Debug("document stabilized", "scrolls", grew, "extent", current)
			return grew, nil
		}
		last = current
		grew++
		if grew%5 == 0 {
			logger.Debug("still loading", "scrolls", grew, "extent", current)
		}
	}

	return grew, fmt.Errorf("%w after %d scrolls", ErrNotStabilized, grew)
}

// boundOrErr maps expiry of the loop's own deadline to ErrNotStabilized
// while passing through the caller's cancellation and real failures.
func boundOrErr(parent, loopCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(loopCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout reached", ErrNotStabilized)
	}
	return err
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
