package provider

import (
	"context"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/paginate"
	"candlefuse/internal/resample"
	"candlefuse/pkg/yahoo"

	"go.uber.org/zap"
)

// intraday bars are only served for roughly the last two years
const maxIntradayDays = 729

// Vendor is the last-resort provider: a general market data feed of hourly bars
// resampled to the requested bar width.
type Vendor struct {
	client   *yahoo.Client
	interval string
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewVendor(client *yahoo.Client, cfg config.YahooConfig, log *zap.Logger, m *metrics.Metrics) *Vendor {
	return &Vendor{client: client, interval: cfg.Interval, log: log, metrics: m, now: time.Now}
}

func (p *Vendor) Name() string { return "yahoo" }

func (p *Vendor) FetchCandles(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.Candle, error) {
	now := p.now()
	days := min(lookbackDays, maxIntradayDays)
	vendorSymbol := market.VendorSymbol(symbol)

	native, skipped, err := p.client.Chart(ctx, vendorSymbol, p.interval, market.Horizon(now, days), now)
	report(p.log, p.metrics, p.Name(), seriesCandles, vendorSymbol, len(native), paginate.Stats{Pages: 1, Skipped: skipped}, err)
	if err != nil {
		return nil, err
	}
	return resample.Candles(native, bar.Duration), nil
}
