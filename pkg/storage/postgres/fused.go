package postgres

import (
	"context"
	"fmt"

	"candlefuse/internal/market"

	"gorm.io/gorm"
)

const batchSize = 500

// ReplaceDataset overwrites the stored rows of one asset and bar in a single transaction.
func (p *PostgresClient) ReplaceDataset(ctx context.Context, ds market.FusedDataset) error {
	records := ToFusedRecords(ds)
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coin = ? AND bar = ?", ds.Asset.Coin, ds.Bar.Name).Delete(&FusedRecord{}).Error; err != nil {
			return fmt.Errorf("delete %s %s: %w", ds.Asset.Coin, ds.Bar, err)
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
}

// ReplaceCandles overwrites the stored candle-only rows of one asset and bar.
func (p *PostgresClient) ReplaceCandles(ctx context.Context, asset market.Asset, bar market.Bar, candles []market.Candle) error {
	records := ToCandleRecords(asset, bar, candles)
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coin = ? AND bar = ?", asset.Coin, bar.Name).Delete(&CandleRecord{}).Error; err != nil {
			return fmt.Errorf("delete %s %s candles: %w", asset.Coin, bar, err)
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
}

// GetFused returns the stored rows of one asset and bar, oldest first.
func (p *PostgresClient) GetFused(ctx context.Context, coin, bar string) ([]FusedRecord, error) {
	var out []FusedRecord
	err := p.DB.WithContext(ctx).
		Where("coin = ? AND bar = ?", coin, bar).
		Order("timestamp ASC").
		Find(&out).Error
	return out, err
}

func ToFusedRecords(ds market.FusedDataset) []FusedRecord {
	out := make([]FusedRecord, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		out = append(out, FusedRecord{
			Coin:         ds.Asset.Coin,
			Bar:          ds.Bar.Name,
			Timestamp:    r.Timestamp.UTC(),
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			Volume:       r.Volume,
			FundingRate:  r.FundingRate,
			OpenInterest: r.OpenInterest,
			Provider:     ds.Provider,
		})
	}
	return out
}

func ToCandleRecords(asset market.Asset, bar market.Bar, candles []market.Candle) []CandleRecord {
	out := make([]CandleRecord, 0, len(candles))
	for _, c := range candles {
		out = append(out, CandleRecord{
			Coin:      asset.Coin,
			Bar:       bar.Name,
			Timestamp: c.Timestamp.UTC(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return out
}

// Sink writes datasets to Postgres.
type Sink struct {
	client *PostgresClient
}

func NewSink(client *PostgresClient) *Sink {
	return &Sink{client: client}
}

func (s *Sink) Name() string { return "postgres" }

func (s *Sink) WriteDataset(ctx context.Context, ds market.FusedDataset) error {
	return s.client.ReplaceDataset(ctx, ds)
}

func (s *Sink) WriteCandles(ctx context.Context, asset market.Asset, bar market.Bar, candles []market.Candle) error {
	return s.client.ReplaceCandles(ctx, asset, bar, candles)
}

func (s *Sink) Close() error {
	return s.client.Close()
}
