package paginate

import (
	"context"
	"time"

	"candlefuse/internal/market"
)

// Stats summarizes one paginated fetch.
type Stats struct {
	Pages      int  // requests issued
	Skipped    int  // raw rows that could not be decoded
	CapReached bool // stopped by the iteration cap rather than by the data
}

// Loop calls step at most maxIter times, waiting on the throttle before each call.
// It stops early when step reports no more pages or returns an error.
func Loop(ctx context.Context, maxIter int, throttle *Throttle, step func(ctx context.Context, iter int) (bool, error)) (int, bool, error) {
	for i := 0; i < maxIter; i++ {
		if err := throttle.Wait(ctx); err != nil {
			return i, false, err
		}
		more, err := step(ctx, i)
		if err != nil || !more {
			return i + 1, false, err
		}
	}
	return maxIter, true, nil
}

// Page is one decoded provider page.
type Page[T market.Timestamped] struct {
	Records []T       // decoded records in provider order
	Rows    int       // raw rows on the page, decodable or not
	Cursor  string    // provider token that requests the following page
	Edge    time.Time // oldest row for backward paging, newest row for forward paging
}

// Spec bounds a paginated fetch.
type Spec struct {
	MaxPages int       // hard iteration cap
	PageSize int       // rows requested per page; a shorter page ends the history
	Horizon  time.Time // oldest instant of interest
	End      time.Time // forward paging stops once the cursor passes End
	Throttle *Throttle
}

// Backward pages newest-to-oldest from the most recent record. fetch receives "" for the first page.
// Records older than the horizon end consumption of their page and stop paging.
// The result is oldest-first and deduplicated, and includes everything gathered before an error.
func Backward[T market.Timestamped](ctx context.Context, spec Spec, fetch func(ctx context.Context, cursor string) (Page[T], error)) ([]T, Stats, error) {
	var (
		out    []T
		stats  Stats
		cursor string
	)

	pages, capped, err := Loop(ctx, spec.MaxPages, spec.Throttle, func(ctx context.Context, _ int) (bool, error) {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return false, err
		}
		if page.Rows == 0 {
			return false, nil
		}
		stats.Skipped += page.Rows - len(page.Records)

		for _, r := range page.Records {
			if r.Time().Before(spec.Horizon) {
				break
			}
			out = append(out, r)
		}

		if page.Cursor == "" || page.Cursor == cursor {
			return false, nil
		}
		cursor = page.Cursor

		if page.Edge.Before(spec.Horizon) || page.Rows < spec.PageSize {
			return false, nil
		}
		return true, nil
	})

	stats.Pages = pages
	stats.CapReached = capped
	return market.Normalize(out), stats, err
}

// Forward pages oldest-to-newest. fetch receives "" for the first page and must start at the horizon.
// Paging stops on an empty or short page, or once the newest row passes spec.End.
func Forward[T market.Timestamped](ctx context.Context, spec Spec, fetch func(ctx context.Context, cursor string) (Page[T], error)) ([]T, Stats, error) {
	var (
		out    []T
		stats  Stats
		cursor string
	)

	pages, capped, err := Loop(ctx, spec.MaxPages, spec.Throttle, func(ctx context.Context, _ int) (bool, error) {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return false, err
		}
		if page.Rows == 0 {
			return false, nil
		}
		stats.Skipped += page.Rows - len(page.Records)

		for _, r := range page.Records {
			if r.Time().Before(spec.Horizon) {
				continue
			}
			out = append(out, r)
		}

		if page.Cursor == "" || page.Cursor == cursor {
			return false, nil
		}
		cursor = page.Cursor

		if page.Rows < spec.PageSize || (!spec.End.IsZero() && page.Edge.After(spec.End)) {
			return false, nil
		}
		return true, nil
	})

	stats.Pages = pages
	stats.CapReached = capped
	return market.Normalize(out), stats, err
}
