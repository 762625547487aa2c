package market

import (
	"sort"
	"time"
)

// Normalize returns the series sorted oldest-first with unique timestamps.
// When a timestamp appears more than once the record appended last wins.
func Normalize[T Timestamped](records []T) []T {
	if len(records) == 0 {
		return nil
	}

	byTime := make(map[int64]T, len(records))
	for _, r := range records {
		byTime[r.Time().UnixMilli()] = r
	}

	keys := make([]int64, 0, len(byTime))
	for k := range byTime {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, byTime[k])
	}
	return out
}

// Horizon returns the oldest instant of interest for a lookback of the given days.
func Horizon(now time.Time, lookbackDays int) time.Time {
	return now.UTC().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
}

// BucketStart returns the start of the epoch-aligned bucket of the given width containing t.
func BucketStart(t time.Time, width time.Duration) time.Time {
	w := width.Milliseconds()
	if w <= 0 {
		return t.UTC()
	}
	ms := t.UnixMilli()
	rem := ms % w
	if rem < 0 {
		rem += w
	}
	return time.UnixMilli(ms - rem).UTC()
}
