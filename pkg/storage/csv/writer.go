// Package csv persists datasets as one CSV file per asset and bar, overwritten on every run.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"candlefuse/internal/market"
)

type Writer struct {
	dir string
}

func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Name() string { return "csv" }

// Path is the file for a coin and bar, e.g. csv_data/BTC_4h.csv.
func (w *Writer) Path(coin string, bar market.Bar) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", coin, bar.FileSuffix()))
}

func (w *Writer) WriteDataset(_ context.Context, ds market.FusedDataset) error {
	rows := make([][]string, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		rows = append(rows, append(candleFields(r.Candle), formatFloat(r.FundingRate), formatFloat(r.OpenInterest)))
	}
	return w.replace(w.Path(ds.Asset.Coin, ds.Bar), market.Columns, rows)
}

func (w *Writer) WriteCandles(_ context.Context, asset market.Asset, bar market.Bar, candles []market.Candle) error {
	rows := make([][]string, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, candleFields(c))
	}
	return w.replace(w.Path(asset.Coin, bar), market.CandleColumns, rows)
}

// replace writes to a temp file in the same directory and renames it over the target.
func (w *Writer) replace(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(w.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func candleFields(c market.Candle) []string {
	ts := market.FormatTime(c.Timestamp)
	return []string{
		ts,
		ts,
		formatFloat(c.Open),
		formatFloat(c.High),
		formatFloat(c.Low),
		formatFloat(c.Close),
		formatFloat(c.Volume),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadDataset loads a file written by WriteDataset.
func ReadDataset(path string) ([]market.FusedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]market.FusedRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(market.Columns) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", path, i+2, len(market.Columns), len(rec))
		}
		ts, err := time.Parse(market.TimeLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		var vals [7]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[j+2], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
			}
		}
		out = append(out, market.FusedRow{
			Candle: market.Candle{
				Timestamp: ts.UTC(),
				Open:      vals[0],
				High:      vals[1],
				Low:       vals[2],
				Close:     vals[3],
				Volume:    vals[4],
			},
			FundingRate:  vals[5],
			OpenInterest: vals[6],
		})
	}
	return out, nil
}
