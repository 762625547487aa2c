package provider

import (
	"fmt"

	"candlefuse/config"
	"candlefuse/internal/metrics"
	"candlefuse/pkg/binance"
	"candlefuse/pkg/okx"
	"candlefuse/pkg/yahoo"

	"go.uber.org/zap"
)

// Set is the configured providers: the candle chain in priority order
// and the derivatives source for the auxiliary series.
type Set struct {
	Candles     []CandleProvider
	Derivatives DerivativesProvider
}

// FromConfig builds the providers named in pipeline.providers, in that order.
// OKX is always built since it serves the derivatives series.
func FromConfig(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Set, error) {
	okxClient, err := okx.NewRESTClient(cfg.OKX.REST)
	if err != nil {
		return nil, err
	}
	primary := NewOKX(okxClient, cfg.OKX, log, m)

	set := &Set{Derivatives: primary}
	for _, name := range cfg.Pipeline.Providers {
		var p CandleProvider
		switch name {
		case "okx":
			p = primary
		case "binance":
			client, err := binance.NewRESTClient(cfg.Binance.REST)
			if err != nil {
				return nil, err
			}
			p = NewBinance(client, cfg.Binance, log, m)
		case "aggregator":
			agg, err := NewAggregator(cfg.Aggregator, log, m)
			if err != nil {
				return nil, err
			}
			p = agg
		case "yahoo":
			client, err := yahoo.NewClient(cfg.Yahoo.REST)
			if err != nil {
				return nil, err
			}
			p = NewVendor(client, cfg.Yahoo, log, m)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		set.Candles = append(set.Candles, p)
	}
	return set, nil
}
