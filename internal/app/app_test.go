package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"candlefuse/config"
	"candlefuse/internal/batch"
	"candlefuse/internal/market"
	"candlefuse/pkg/okx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOKX serves two fresh candles per instrument, no history for the
// auxiliary series and fixed live values. Instruments in missing return nothing.
func fakeOKX(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()
	skip := map[string]bool{}
	for _, m := range missing {
		skip[m] = true
	}
	newest := time.Now().UTC().Truncate(4 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if skip[strings.TrimSuffix(q.Get("instId"), "-SWAP")] {
			_, _ = fmt.Fprint(w, `{"code":"0","data":[]}`)
			return
		}
		switch r.URL.Path {
		case okx.PathCandles:
			if q.Get("after") != "" {
				_, _ = fmt.Fprint(w, `{"code":"0","data":[]}`)
				return
			}
			row := func(ts time.Time, c string) string {
				return fmt.Sprintf(`["%s","100","110","90","%s","12","0","0","1"]`, strconv.FormatInt(ts.UnixMilli(), 10), c)
			}
			_, _ = fmt.Fprintf(w, `{"code":"0","data":[%s,%s]}`, row(newest, "105"), row(newest.Add(-4*time.Hour), "101"))
		case okx.PathTicker:
			_, _ = fmt.Fprint(w, `{"code":"0","data":[{"last":"110","open24h":"100"}]}`)
		case okx.PathFundingRate:
			_, _ = fmt.Fprint(w, `{"code":"0","data":[{"fundingRate":"0.0001"}]}`)
		case okx.PathOpenInterest:
			_, _ = fmt.Fprint(w, `{"code":"0","data":[{"oi":"5000"}]}`)
		default:
			_, _ = fmt.Fprint(w, `{"code":"0","data":[]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	rest := config.RESTConfig{BaseURL: baseURL, Timeout: 2 * time.Second}
	page := config.PaginationConfig{PageSize: 100, MaxPages: 5}

	return &config.Config{
		Pipeline: config.PipelineConfig{
			Bar:          "4H",
			DailyBar:     "1D",
			LookbackDays: 30,
			MaxAge:       12 * time.Hour,
			Providers:    []string{"okx"},
			Assets: []market.Asset{
				{Coin: "BTC", Symbol: "BTC-USDT"},
				{Coin: "ETH", Symbol: "ETH-USDT"},
			},
		},
		OKX: config.OKXConfig{
			REST:         rest,
			Candles:      page,
			Funding:      page,
			OpenInterest: page,
			OIPeriod:     "1H",
		},
		Snapshot: config.SnapshotConfig{REST: rest, RSIPeriod: 14, RSICandles: 100},
		Cache:    config.CacheConfig{Backend: "memory", TTL: 4 * time.Hour, Interval: time.Hour},
		Storage:  config.StorageConfig{CSV: config.CSVConfig{Enabled: true, Dir: filepath.Join(dir, "csv")}},
		Metrics:  config.MetricsConfig{Textfile: filepath.Join(dir, "candlefuse.prom")},
	}
}

// go test -v --run TestRunBatch
func TestRunBatch(t *testing.T) {
	srv := fakeOKX(t)
	cfg := testConfig(t, srv.URL)

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.RunBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, batch.StatusOK, res.Status)
		assert.Equal(t, "okx", res.Provider)
		assert.Equal(t, 2, res.Rows)
		assert.Equal(t, 2, res.DailyRows)
	}

	for _, name := range []string{"BTC_4h.csv", "BTC_1d.csv", "ETH_4h.csv", "ETH_1d.csv"} {
		assert.FileExists(t, filepath.Join(cfg.Storage.CSV.Dir, name))
	}
	assert.FileExists(t, cfg.Metrics.Textfile)
}

// go test -v --run TestRunBatchFailedAsset
func TestRunBatchFailedAsset(t *testing.T) {
	srv := fakeOKX(t, "ETH-USDT")
	cfg := testConfig(t, srv.URL)

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.RunBatch(context.Background())
	require.ErrorIs(t, err, batch.ErrAssetsFailed)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "ETH", report.Failed()[0].Asset.Coin)

	_, statErr := os.Stat(filepath.Join(cfg.Storage.CSV.Dir, "ETH_4h.csv"))
	assert.True(t, os.IsNotExist(statErr))
	assert.FileExists(t, filepath.Join(cfg.Storage.CSV.Dir, "BTC_4h.csv"))
}

// go test -v --run TestDocument
func TestDocument(t *testing.T) {
	srv := fakeOKX(t, "ETH-USDT")
	cfg := testConfig(t, srv.URL)

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	doc, err := a.Document(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, []string{"ETH"}, doc.Failed)
	require.Contains(t, doc.Datasets, "BTC")
	assert.Equal(t, 2, doc.Datasets["BTC"].Rows)
	assert.Equal(t, 105.0, doc.Datasets["BTC"].LastClose)

	require.Len(t, doc.Snapshots, 2)
	assert.Equal(t, "BTC", doc.Snapshots[0].Symbol)
	assert.Equal(t, 110.0, doc.Snapshots[0].Price)
	assert.InDelta(t, 10.0, doc.Snapshots[0].Change24h, 1e-9)
	assert.Equal(t, 0.0, doc.Snapshots[1].Price)

	again, err := a.Document(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, doc.RunID, again.RunID)
}

// go test -v --run TestUnknownCacheBackend
func TestUnknownCacheBackend(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Cache.Backend = "etcd"

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown cache backend")
}
