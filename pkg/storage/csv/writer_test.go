package csv

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"candlefuse/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btc = market.Asset{Coin: "BTC", Symbol: "BTC-USDT"}

func dataset(n int) market.FusedDataset {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ds := market.FusedDataset{Asset: btc, Bar: market.Bar4H, Provider: "okx"}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, market.FusedRow{
			Candle:       market.Candle{Timestamp: t0.Add(time.Duration(i) * 4 * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.25, Volume: 1000},
			FundingRate:  0.0001,
			OpenInterest: 12345.5,
		})
	}
	return ds
}

// go test -v --run TestWriteDataset
func TestWriteDataset(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.WriteDataset(context.Background(), dataset(2)))

	data, err := os.ReadFile(w.Path("BTC", market.Bar4H))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,datetime,open,high,low,close,volume,funding_rate,open_interest", lines[0])
	assert.Equal(t, "2024-06-01 00:00:00+00:00,2024-06-01 00:00:00+00:00,1,2,0.5,1.25,1000,0.0001,12345.5", lines[1])
}

// go test -v --run TestWriteDatasetOverwrites
func TestWriteDatasetOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteDataset(context.Background(), dataset(5)))
	require.NoError(t, w.WriteDataset(context.Background(), dataset(2)))

	rows, err := ReadDataset(w.Path("BTC", market.Bar4H))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 12345.5, rows[1].OpenInterest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

// go test -v --run TestWriteCandles
func TestWriteCandles(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	candles := []market.Candle{{Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	require.NoError(t, w.WriteCandles(context.Background(), btc, market.Bar1D, candles))

	data, err := os.ReadFile(w.Path("BTC", market.Bar1D))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,datetime,open,high,low,close,volume\n"))
	assert.Contains(t, w.Path("BTC", market.Bar1D), "BTC_1d.csv")
}
