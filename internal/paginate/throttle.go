package paginate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between successive requests to one provider.
// The first request passes immediately.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle with the given interval. A non-positive interval disables it.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be issued or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
