package provider

import (
	"context"
	"strconv"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/paginate"
	"candlefuse/pkg/binance"

	"go.uber.org/zap"
)

// Binance is the secondary provider: raw spot klines paged forward from the horizon.
type Binance struct {
	client  *binance.RESTClient
	candles paginateConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewBinance(client *binance.RESTClient, cfg config.BinanceConfig, log *zap.Logger, m *metrics.Metrics) *Binance {
	return &Binance{
		client:  client,
		candles: newPaginateConfig(cfg.Candles.PageSize, cfg.Candles.MaxPages, cfg.Candles.Throttle),
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

func (p *Binance) Name() string { return "binance" }

func (p *Binance) FetchCandles(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.Candle, error) {
	now := p.now()
	horizon := market.Horizon(now, lookbackDays)
	venueSymbol := market.CompactSymbol(symbol)

	out, stats, err := paginate.Forward(ctx, specFor(p.candles, horizon, now),
		func(ctx context.Context, cursor string) (paginate.Page[market.Candle], error) {
			start, err := startFromCursor(cursor, horizon)
			if err != nil {
				return paginate.Page[market.Candle]{}, err
			}
			return p.client.KlinesPage(ctx, venueSymbol, bar.Binance, start, p.candles.PageSize)
		})

	report(p.log, p.metrics, p.Name(), seriesCandles, venueSymbol, len(out), stats, err)
	return out, err
}

// startFromCursor turns a millisecond cursor into a start time; "" means the horizon.
func startFromCursor(cursor string, horizon time.Time) (time.Time, error) {
	if cursor == "" {
		return horizon, nil
	}
	ms, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
