package provider

import (
	"context"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/paginate"
	"candlefuse/internal/resample"
	"candlefuse/pkg/okx"

	"go.uber.org/zap"
)

// OKX is the primary provider. Candles come from the spot instrument,
// funding and open interest from the USDT perpetual swap.
type OKX struct {
	client       *okx.RESTClient
	candles      paginateConfig
	funding      paginateConfig
	openInterest paginateConfig
	oiPeriod     string
	padDays      int
	log          *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewOKX(client *okx.RESTClient, cfg config.OKXConfig, log *zap.Logger, m *metrics.Metrics) *OKX {
	return &OKX{
		client:       client,
		candles:      newPaginateConfig(cfg.Candles.PageSize, cfg.Candles.MaxPages, cfg.Candles.Throttle),
		funding:      newPaginateConfig(cfg.Funding.PageSize, cfg.Funding.MaxPages, cfg.Funding.Throttle),
		openInterest: newPaginateConfig(cfg.OpenInterest.PageSize, cfg.OpenInterest.MaxPages, cfg.OpenInterest.Throttle),
		oiPeriod:     cfg.OIPeriod,
		padDays:      cfg.HorizonPadDays,
		log:          log,
		metrics:      m,
		now:          time.Now,
	}
}

func (p *OKX) Name() string { return "okx" }

func (p *OKX) FetchCandles(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.Candle, error) {
	horizon := market.Horizon(p.now(), lookbackDays+p.padDays)

	out, stats, err := paginate.Backward(ctx, specFor(p.candles, horizon, time.Time{}),
		func(ctx context.Context, cursor string) (paginate.Page[market.Candle], error) {
			return p.client.CandlesPage(ctx, symbol, bar.OKX, p.candles.PageSize, cursor)
		})

	report(p.log, p.metrics, p.Name(), seriesCandles, symbol, len(out), stats, err)
	return out, err
}

// FetchFunding reaches back as far as FetchCandles so padded candles get real settlements.
func (p *OKX) FetchFunding(ctx context.Context, symbol string, lookbackDays int) ([]market.FundingRecord, error) {
	swapID := market.SwapSymbol(symbol)
	horizon := market.Horizon(p.now(), lookbackDays+p.padDays)

	out, stats, err := paginate.Backward(ctx, specFor(p.funding, horizon, time.Time{}),
		func(ctx context.Context, cursor string) (paginate.Page[market.FundingRecord], error) {
			return p.client.FundingHistoryPage(ctx, swapID, p.funding.PageSize, cursor)
		})

	report(p.log, p.metrics, p.Name(), seriesFunding, swapID, len(out), stats, err)
	return out, err
}

func (p *OKX) FetchOpenInterest(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.OpenInterestRecord, error) {
	swapID := market.SwapSymbol(symbol)
	horizon := market.Horizon(p.now(), lookbackDays)

	native, stats, err := paginate.Backward(ctx, specFor(p.openInterest, horizon, time.Time{}),
		func(ctx context.Context, cursor string) (paginate.Page[market.OpenInterestRecord], error) {
			return p.client.OpenInterestHistoryPage(ctx, swapID, p.oiPeriod, p.openInterest.PageSize, cursor)
		})

	report(p.log, p.metrics, p.Name(), seriesOpenInterest, swapID, len(native), stats, err)
	return resample.OpenInterest(native, bar.Duration), err
}
