package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/paginate"
	"candlefuse/pkg/bybit"
	"candlefuse/pkg/httpclient"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"go.uber.org/zap"
)

const aggregatorName = "aggregator"

// venue pages candles from one exchange SDK.
type venue struct {
	name  string
	fetch func(ctx context.Context, symbol string, bar market.Bar, start time.Time, limit int) (paginate.Page[market.Candle], error)
}

// Aggregator walks a list of exchange SDK venues and returns the first non-empty series.
type Aggregator struct {
	venues  []venue
	candles paginateConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAggregator(cfg config.AggregatorConfig, log *zap.Logger, m *metrics.Metrics) (*Aggregator, error) {
	hc, err := httpclient.NewHTTPClient(cfg.Timeout, cfg.Proxy, "")
	if err != nil {
		return nil, fmt.Errorf("aggregator http client: %w", err)
	}

	a := &Aggregator{
		candles: newPaginateConfig(cfg.Candles.PageSize, cfg.Candles.MaxPages, cfg.Candles.Throttle),
		log:     log,
		metrics: m,
		now:     time.Now,
	}

	for _, name := range cfg.Venues {
		switch name {
		case "bybit":
			client := bybit.NewRESTClient(cfg.BybitBaseURL, hc)
			category := cfg.BybitCategory
			a.venues = append(a.venues, venue{
				name: name,
				fetch: func(ctx context.Context, symbol string, bar market.Bar, start time.Time, limit int) (paginate.Page[market.Candle], error) {
					return client.KlinesPage(ctx, category, market.CompactSymbol(symbol), bar.Bybit, start, limit)
				},
			})
		case "binance":
			client := gobinance.NewClient("", "")
			client.BaseURL = cfg.BinanceBaseURL
			client.HTTPClient = hc
			a.venues = append(a.venues, venue{
				name: name,
				fetch: func(ctx context.Context, symbol string, bar market.Bar, start time.Time, limit int) (paginate.Page[market.Candle], error) {
					return binanceKlinesPage(ctx, client, market.CompactSymbol(symbol), bar.Binance, start, limit)
				},
			})
		default:
			return nil, fmt.Errorf("unknown aggregator venue %q", name)
		}
	}
	return a, nil
}

func (a *Aggregator) Name() string { return aggregatorName }

func (a *Aggregator) FetchCandles(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) ([]market.Candle, error) {
	now := a.now()
	horizon := market.Horizon(now, lookbackDays)

	var errs []error
	for _, v := range a.venues {
		out, stats, err := paginate.Forward(ctx, specFor(a.candles, horizon, now),
			func(ctx context.Context, cursor string) (paginate.Page[market.Candle], error) {
				start, err := startFromCursor(cursor, horizon)
				if err != nil {
					return paginate.Page[market.Candle]{}, err
				}
				return v.fetch(ctx, symbol, bar, start, a.candles.PageSize)
			})

		report(a.log, a.metrics, aggregatorName+"/"+v.name, seriesCandles, symbol, len(out), stats, err)
		if len(out) > 0 {
			return out, err
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return nil, errors.Join(errs...)
}

// binanceKlinesPage fetches one forward page through the go-binance spot client.
func binanceKlinesPage(ctx context.Context, client *gobinance.Client, symbol, interval string,
	start time.Time, limit int) (paginate.Page[market.Candle], error) {
	klines, err := client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(start.UnixMilli()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		kind := market.KindTransport
		if common.IsAPIError(err) {
			kind = market.KindProvider
		}
		return paginate.Page[market.Candle]{}, market.NewFetchError(aggregatorName, kind, err)
	}

	page := paginate.Page[market.Candle]{Rows: len(klines)}
	var lastClose int64
	for _, k := range klines {
		lastClose = max(lastClose, k.CloseTime)
		c, err := candleFromKline(k)
		if err != nil {
			continue // skip undecodable record
		}
		page.Records = append(page.Records, c)
		if c.Timestamp.After(page.Edge) {
			page.Edge = c.Timestamp
		}
	}
	if lastClose > 0 {
		page.Cursor = strconv.FormatInt(lastClose+1, 10)
	}
	return page, nil
}

func candleFromKline(k *gobinance.Kline) (market.Candle, error) {
	var vals [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, err
		}
		vals[i] = v
	}
	c := market.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}
	return c, c.Validate()
}
