package market

import "time"

// Candle represents a single OHLCV bar normalized from any provider.
type Candle struct {
	Timestamp time.Time `json:"timestamp"` // Bar open time (UTC)
	Open      float64   `json:"open"`      // Opening price
	High      float64   `json:"high"`      // Highest price during the bar
	Low       float64   `json:"low"`       // Lowest price during the bar
	Close     float64   `json:"close"`     // Closing price
	Volume    float64   `json:"volume"`    // Traded volume in base units
}

// FundingRecord is one funding settlement of a perpetual swap.
type FundingRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"` // signed fraction, e.g. 0.0001
}

// OpenInterestRecord is one open-interest observation.
type OpenInterestRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

func (c Candle) Time() time.Time             { return c.Timestamp }
func (f FundingRecord) Time() time.Time      { return f.Timestamp }
func (o OpenInterestRecord) Time() time.Time { return o.Timestamp }

// Timestamped is implemented by every series element.
type Timestamped interface {
	Time() time.Time
}

// FusedRow is one output row: a candle with its aligned funding rate and open interest.
type FusedRow struct {
	Candle
	FundingRate  float64 `json:"funding_rate"`
	OpenInterest float64 `json:"open_interest"`
}

// FusedDataset is the aligned per-asset output. It has exactly one row per backbone candle.
type FusedDataset struct {
	Asset    Asset      `json:"asset"`
	Bar      Bar        `json:"bar"`
	Provider string     `json:"provider"` // provider that supplied the candle backbone
	Rows     []FusedRow `json:"rows"`
}

// Columns is the fixed output column order.
var Columns = []string{"date", "datetime", "open", "high", "low", "close", "volume", "funding_rate", "open_interest"}

// CandleColumns is the column order of candle-only artifacts.
var CandleColumns = []string{"date", "datetime", "open", "high", "low", "close", "volume"}

// TimeLayout is the sortable UTC text form used in persisted artifacts.
const TimeLayout = "2006-01-02 15:04:05+00:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Latest returns the newest timestamp of a series, or the zero time when empty.
func Latest[T Timestamped](series []T) time.Time {
	var latest time.Time
	for _, r := range series {
		if ts := r.Time(); ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
