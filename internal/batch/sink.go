package batch

import (
	"context"
	"errors"
	"fmt"

	"candlefuse/internal/market"
)

// DatasetSink persists one fused dataset, replacing any previous version for the asset.
type DatasetSink interface {
	Name() string
	WriteDataset(ctx context.Context, ds market.FusedDataset) error
}

// CandleSink is implemented by sinks that also store candle-only series.
type CandleSink interface {
	WriteCandles(ctx context.Context, asset market.Asset, bar market.Bar, candles []market.Candle) error
}

// MultiSink fans every write out to all sinks and joins their errors.
type MultiSink []DatasetSink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) WriteDataset(ctx context.Context, ds market.FusedDataset) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteDataset(ctx, ds); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) WriteCandles(ctx context.Context, asset market.Asset, bar market.Bar, candles []market.Candle) error {
	var errs []error
	for _, s := range m {
		cs, ok := s.(CandleSink)
		if !ok {
			continue
		}
		if err := cs.WriteCandles(ctx, asset, bar, candles); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
