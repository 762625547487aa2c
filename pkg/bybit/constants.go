package bybit

import (
	"fmt"
	"time"
)

// KlineInterval is the interval type used for API requests
type KlineInterval string

// KlineIntervalMeta holds the API value and width of a Kline interval
type KlineIntervalMeta struct {
	APIValue string
	Minutes  int
}

const (
	Interval60Min  KlineInterval = "60"
	Interval120Min KlineInterval = "120"
	Interval240Min KlineInterval = "240"
	Interval360Min KlineInterval = "360"
	Interval720Min KlineInterval = "720"
	IntervalDaily  KlineInterval = "D"
	IntervalWeekly KlineInterval = "W"
)

// validKlineIntervals maps KlineInterval to its API value and width
var validKlineIntervals = map[KlineInterval]KlineIntervalMeta{
	Interval60Min:  {APIValue: "60", Minutes: 60},
	Interval120Min: {APIValue: "120", Minutes: 120},
	Interval240Min: {APIValue: "240", Minutes: 240},
	Interval360Min: {APIValue: "360", Minutes: 360},
	Interval720Min: {APIValue: "720", Minutes: 720},
	IntervalDaily:  {APIValue: "D", Minutes: 1440},  // 24*60
	IntervalWeekly: {APIValue: "W", Minutes: 10080}, // 7*24*60
}

// Duration is the width of one bar.
func (m KlineIntervalMeta) Duration() time.Duration {
	return time.Duration(m.Minutes) * time.Minute
}

// ParseKlineInterval parses a string into a valid KlineIntervalMeta
func ParseKlineInterval(s string) (KlineIntervalMeta, error) {
	interval := KlineInterval(s)
	meta, ok := validKlineIntervals[interval]
	if !ok {
		return KlineIntervalMeta{}, fmt.Errorf("invalid KlineInterval: %s", s)
	}
	return meta, nil
}
