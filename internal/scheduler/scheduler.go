package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Periodic runs Job once at startup and then every Interval until the context ends.
type Periodic struct {
	Interval time.Duration
	Job      func(ctx context.Context) error
	Logger   *zap.Logger
}

// Run blocks until ctx is done. Job errors are logged and never stop the schedule.
// A non-positive Interval runs Job once.
func (p *Periodic) Run(ctx context.Context) {
	// Run immediately once at startup
	p.runOnce(ctx)

	if p.Interval <= 0 {
		p.Logger.Warn("scheduler interval not positive, not repeating", zap.Duration("interval", p.Interval))
		return
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		p.Logger.Info("scheduler sleeping", zap.Duration("interval", p.Interval))
		select {
		case <-ctx.Done():
			p.Logger.Info("scheduler stopped", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	start := time.Now()
	if err := p.Job(ctx); err != nil {
		p.Logger.Error("scheduled job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	p.Logger.Info("scheduled job finished", zap.Duration("elapsed", time.Since(start)))
}
