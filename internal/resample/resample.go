// Package resample folds fine-grained series into epoch-aligned buckets of a target bar width.
package resample

import (
	"time"

	"candlefuse/internal/market"
)

// OpenInterest keeps the latest record of each bucket, stamped at the bucket start.
// Empty buckets are dropped. The result is oldest-first.
func OpenInterest(records []market.OpenInterestRecord, width time.Duration) []market.OpenInterestRecord {
	var out []market.OpenInterestRecord
	for _, r := range market.Normalize(records) {
		start := market.BucketStart(r.Timestamp, width)
		last := len(out) - 1
		if last >= 0 && out[last].Timestamp.Equal(start) {
			out[last].Value = r.Value
			continue
		}
		out = append(out, market.OpenInterestRecord{Timestamp: start, Value: r.Value})
	}
	return out
}

// Candles aggregates candles into wider bars: first open, max high, min low, last close, summed volume.
func Candles(candles []market.Candle, width time.Duration) []market.Candle {
	var out []market.Candle
	for _, c := range market.Normalize(candles) {
		start := market.BucketStart(c.Timestamp, width)
		last := len(out) - 1
		if last >= 0 && out[last].Timestamp.Equal(start) {
			b := &out[last]
			b.High = max(b.High, c.High)
			b.Low = min(b.Low, c.Low)
			b.Close = c.Close
			b.Volume += c.Volume
			continue
		}
		c.Timestamp = start
		out = append(out, c)
	}
	return out
}
