// Package freshness rejects series whose newest record is too old.
package freshness

import (
	"errors"
	"fmt"
	"time"

	"candlefuse/internal/market"
)

var ErrStale = errors.New("series is stale")

type Validator struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func New(maxAge time.Duration) *Validator {
	return &Validator{MaxAge: maxAge, Now: time.Now}
}

// Age is the time elapsed since the newest record. An empty series has no age.
func Age[T market.Timestamped](now time.Time, series []T) (time.Duration, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return now.Sub(market.Latest(series)), true
}

// Validate returns nil when the newest candle is at most MaxAge old (inclusive).
func (v *Validator) Validate(series []market.Candle) error {
	age, ok := Age(v.Now(), series)
	if !ok {
		return market.ErrEmptyPage
	}
	if age > v.MaxAge {
		return fmt.Errorf("%w: newest candle %s is %s old (max %s)",
			ErrStale, market.FormatTime(market.Latest(series)), age.Truncate(time.Second), v.MaxAge)
	}
	return nil
}
