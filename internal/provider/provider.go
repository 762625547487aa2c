// Package provider adapts each market data source to the candle, funding and open-interest contracts
// consumed by the fallback orchestrator and the batch driver.
package provider

import (
	"context"
	"time"

	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/paginate"

	"go.uber.org/zap"
)

// CandleProvider fetches a candle series for a canonical symbol such as "BTC-USDT".
// On a fault it returns whatever was gathered before the fault together with a classified error.
// The series is oldest-first with unique timestamps.
type CandleProvider interface {
	Name() string
	FetchCandles(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.Candle, error)
}

// DerivativesProvider fetches the auxiliary perpetual-swap series.
type DerivativesProvider interface {
	FetchFunding(ctx context.Context, symbol string, lookbackDays int) ([]market.FundingRecord, error)
	// FetchOpenInterest returns open interest resampled to the bar width.
	FetchOpenInterest(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.OpenInterestRecord, error)
}

const (
	seriesCandles      = "candles"
	seriesFunding      = "funding"
	seriesOpenInterest = "open_interest"
)

func specFor(p paginateConfig, horizon, end time.Time) paginate.Spec {
	return paginate.Spec{
		MaxPages: p.MaxPages,
		PageSize: p.PageSize,
		Horizon:  horizon,
		End:      end,
		Throttle: p.throttle,
	}
}

// paginateConfig is a pagination budget with its long-lived throttle.
type paginateConfig struct {
	PageSize int
	MaxPages int
	throttle *paginate.Throttle
}

func newPaginateConfig(pageSize, maxPages int, interval time.Duration) paginateConfig {
	return paginateConfig{PageSize: pageSize, MaxPages: maxPages, throttle: paginate.NewThrottle(interval)}
}

// report logs and records the outcome of one paginated fetch.
func report(log *zap.Logger, m *metrics.Metrics, provider, series, symbol string, n int, stats paginate.Stats, err error) {
	m.ObservePages(provider, series, stats.Pages, stats.Skipped, stats.CapReached)

	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("series", series),
		zap.String("symbol", symbol),
		zap.Int("records", n),
		zap.Int("pages", stats.Pages),
	}
	if stats.Skipped > 0 {
		log.Warn("skipped undecodable records", append(fields, zap.Int("skipped", stats.Skipped))...)
	}
	if stats.CapReached {
		log.Warn("pagination cap reached", fields...)
	}
	if err != nil {
		log.Warn("fetch ended with fault", append(fields, zap.Error(err))...)
		return
	}
	log.Info("fetch complete", fields...)
}
