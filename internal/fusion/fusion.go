// Package fusion aligns funding and open-interest series onto a candle backbone.
package fusion

import (
	"sort"
	"time"

	"candlefuse/internal/market"
)

// OpenInterestTolerance is the widest gap between a candle and the open-interest record assigned to it.
const OpenInterestTolerance = time.Hour

// Fuse returns exactly one row per candle, in candle order.
//
// Funding is a backward as-of join: each row takes the latest settlement at or before its
// timestamp, and rows before the first settlement get 0. Open interest takes the record
// nearest to the candle within OpenInterestTolerance, else 0; on a tie the earlier record wins.
func Fuse(candles []market.Candle, funding []market.FundingRecord, oi []market.OpenInterestRecord) []market.FusedRow {
	funding = market.Normalize(funding)
	oi = market.Normalize(oi)

	rows := make([]market.FusedRow, len(candles))
	for i, c := range candles {
		rows[i] = market.FusedRow{
			Candle:       c,
			FundingRate:  fundingAt(funding, c.Timestamp),
			OpenInterest: openInterestNear(oi, c.Timestamp),
		}
	}
	return rows
}

// Dataset wraps Fuse with the asset metadata.
func Dataset(asset market.Asset, bar market.Bar, providerName string,
	candles []market.Candle, funding []market.FundingRecord, oi []market.OpenInterestRecord) market.FusedDataset {
	return market.FusedDataset{
		Asset:    asset,
		Bar:      bar,
		Provider: providerName,
		Rows:     Fuse(candles, funding, oi),
	}
}

func fundingAt(series []market.FundingRecord, t time.Time) float64 {
	// first record strictly after t
	i := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(t) })
	if i == 0 {
		return 0
	}
	return series[i-1].Rate
}

func openInterestNear(series []market.OpenInterestRecord, t time.Time) float64 {
	// first record at or after t
	i := sort.Search(len(series), func(i int) bool { return !series[i].Timestamp.Before(t) })

	best, bestGap := -1, OpenInterestTolerance+1
	if i > 0 {
		best, bestGap = i-1, t.Sub(series[i-1].Timestamp)
	}
	if i < len(series) {
		if gap := series[i].Timestamp.Sub(t); gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 || bestGap > OpenInterestTolerance {
		return 0
	}
	return series[best].Value
}
