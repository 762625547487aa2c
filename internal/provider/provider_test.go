package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/pkg/binance"
	"candlefuse/pkg/okx"
	"candlefuse/pkg/yahoo"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ms(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func okxCandleRow(ts time.Time) string {
	return fmt.Sprintf(`["%s","100","110","90","105","12","0","0","1"]`, ms(ts))
}

func newOKX(t *testing.T, h http.HandlerFunc, m *metrics.Metrics) *OKX {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := okx.NewRESTClient(config.RESTConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	p := NewOKX(client, config.OKXConfig{
		Candles:      config.PaginationConfig{PageSize: 2, MaxPages: 50},
		Funding:      config.PaginationConfig{PageSize: 100, MaxPages: 100},
		OpenInterest: config.PaginationConfig{PageSize: 100, MaxPages: 500},
		OIPeriod:     "1H",
	}, zap.NewNop(), m)
	p.now = func() time.Time { return t0.Add(time.Hour) }
	return p
}

// go test -v --run TestOKXFetchCandles
func TestOKXFetchCandles(t *testing.T) {
	var calls int32
	m := metrics.New()
	p := newOKX(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))

		var rows string
		switch r.URL.Query().Get("after") {
		case "":
			rows = okxCandleRow(t0) + "," + okxCandleRow(t0.Add(-4*time.Hour))
		case ms(t0.Add(-4 * time.Hour)):
			rows = okxCandleRow(t0.Add(-8*time.Hour)) + "," + okxCandleRow(t0.Add(-12*time.Hour))
		}
		_, _ = fmt.Fprintf(w, `{"code":"0","msg":"","data":[%s]}`, rows)
	}, m)

	out, err := p.FetchCandles(context.Background(), "BTC-USDT", market.Bar4H, 30)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, t0.Add(-12*time.Hour), out[0].Timestamp)
	assert.Equal(t, t0, out[3].Timestamp)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Pages.WithLabelValues("okx", "candles")))
}

// go test -v --run TestOKXFetchCandlesPartial
func TestOKXFetchCandlesPartial(t *testing.T) {
	p := newOKX(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprintf(w, `{"code":"0","data":[%s,%s]}`, okxCandleRow(t0), okxCandleRow(t0.Add(-4*time.Hour)))
	}, nil)

	out, err := p.FetchCandles(context.Background(), "BTC-USDT", market.Bar4H, 30)
	assert.Len(t, out, 2)
	assert.Equal(t, market.KindTransport, market.KindOf(err))
}

// go test -v --run TestOKXFetchFunding
func TestOKXFetchFunding(t *testing.T) {
	p := newOKX(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, okx.PathFundingRateHistory, r.URL.Path)
		assert.Equal(t, "BTC-USDT-SWAP", r.URL.Query().Get("instId"))
		_, _ = fmt.Fprintf(w, `{"code":"0","data":[
			{"fundingRate":"0.0002","fundingTime":"%s"},
			{"fundingRate":"0.0001","fundingTime":"%s"}]}`, ms(t0), ms(t0.Add(-8*time.Hour)))
	}, nil)

	out, err := p.FetchFunding(context.Background(), "BTC-USDT", 30)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.0001, out[0].Rate)
	assert.Equal(t, 0.0002, out[1].Rate)
}

// go test -v --run TestOKXFetchFundingCoversCandleHorizon
func TestOKXFetchFundingCoversCandleHorizon(t *testing.T) {
	p := newOKX(t, func(w http.ResponseWriter, r *http.Request) {
		rows := ""
		for i := 0; i < 30; i++ { // ten days of 8-hourly settlements, newest first
			if i > 0 {
				rows += ","
			}
			rows += fmt.Sprintf(`{"fundingRate":"0.0001","fundingTime":"%s"}`, ms(t0.Add(-time.Duration(i)*8*time.Hour)))
		}
		_, _ = fmt.Fprintf(w, `{"code":"0","data":[%s]}`, rows)
	}, nil)
	p.padDays = 5

	out, err := p.FetchFunding(context.Background(), "BTC-USDT", 3)
	require.NoError(t, err)
	require.Len(t, out, 24)

	candleHorizon := market.Horizon(p.now(), 3+p.padDays)
	assert.False(t, out[0].Timestamp.Before(candleHorizon))
	assert.True(t, out[0].Timestamp.Before(candleHorizon.Add(8*time.Hour)))
}

// go test -v --run TestOKXFetchOpenInterest
func TestOKXFetchOpenInterest(t *testing.T) {
	p := newOKX(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, okx.PathOpenInterestHistory, r.URL.Path)
		assert.Equal(t, "1H", r.URL.Query().Get("period"))

		rows := ""
		for i := 0; i < 8; i++ {
			if i > 0 {
				rows += ","
			}
			ts := t0.Add(-time.Duration(i+1) * time.Hour) // newest first
			rows += fmt.Sprintf(`["%s","%d","0","0"]`, ms(ts), 100+i)
		}
		_, _ = fmt.Fprintf(w, `{"code":"0","data":[%s]}`, rows)
	}, nil)

	out, err := p.FetchOpenInterest(context.Background(), "BTC-USDT", market.Bar4H, 30)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, t0.Add(-8*time.Hour), out[0].Timestamp)
	assert.Equal(t, 104.0, out[0].Value) // t0-5h is the last hour of the first window
	assert.Equal(t, 100.0, out[1].Value)
}

func binanceKlineRow(open time.Time, bar time.Duration) string {
	return fmt.Sprintf(`[%d,"100","110","90","105","12",%d,"0",1,"0","0","0"]`,
		open.UnixMilli(), open.Add(bar).UnixMilli()-1)
}

// go test -v --run TestBinanceFetchCandles
func TestBinanceFetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		_, _ = fmt.Fprintf(w, "[%s,%s]", binanceKlineRow(t0.Add(-4*time.Hour), 4*time.Hour), binanceKlineRow(t0, 4*time.Hour))
	}))
	defer srv.Close()

	client, err := binance.NewRESTClient(config.RESTConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	p := NewBinance(client, config.BinanceConfig{Candles: config.PaginationConfig{PageSize: 1000, MaxPages: 50}}, zap.NewNop(), nil)
	p.now = func() time.Time { return t0.Add(time.Hour) }

	out, err := p.FetchCandles(context.Background(), "BTC-USDT", market.Bar4H, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, t0, out[1].Timestamp)
}

// go test -v --run TestAggregatorFallsThroughVenues
func TestAggregatorFallsThroughVenues(t *testing.T) {
	bybitSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{},"retExtInfo":{},"time":1717200000000}`))
	}))
	defer bybitSrv.Close()

	binanceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		_, _ = fmt.Fprintf(w, "[%s]", binanceKlineRow(t0, 4*time.Hour))
	}))
	defer binanceSrv.Close()

	a, err := NewAggregator(config.AggregatorConfig{
		Venues:         []string{"bybit", "binance"},
		BybitBaseURL:   bybitSrv.URL,
		BybitCategory:  "linear",
		BinanceBaseURL: binanceSrv.URL,
		Timeout:        2 * time.Second,
		Candles:        config.PaginationConfig{PageSize: 1000, MaxPages: 5},
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	a.now = func() time.Time { return t0.Add(time.Hour) }

	out, err := a.FetchCandles(context.Background(), "BTC-USDT", market.Bar4H, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 105.0, out[0].Close)
}

// go test -v --run TestAggregatorUnknownVenue
func TestAggregatorUnknownVenue(t *testing.T) {
	_, err := NewAggregator(config.AggregatorConfig{Venues: []string{"kraken"}}, zap.NewNop(), nil)
	assert.Error(t, err)
}

// go test -v --run TestVendorResamples
func TestVendorResamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		ts := ""
		vals := ""
		for i := 0; i < 8; i++ {
			if i > 0 {
				ts += ","
				vals += ","
			}
			ts += strconv.FormatInt(t0.Add(time.Duration(i)*time.Hour).Unix(), 10)
			vals += strconv.Itoa(100 + i)
		}
		_, _ = fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{
			"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],"error":null}}`,
			ts, vals, vals, vals, vals, vals)
	}))
	defer srv.Close()

	client, err := yahoo.NewClient(config.RESTConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	p := NewVendor(client, config.YahooConfig{Interval: "1h"}, zap.NewNop(), nil)
	p.now = func() time.Time { return t0.Add(8 * time.Hour) }

	out, err := p.FetchCandles(context.Background(), "BTC-USDT", market.Bar4H, 730)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out[0].Open)
	assert.Equal(t, 103.0, out[0].Close)
	assert.Equal(t, 100.0+101+102+103, out[0].Volume)
}

// go test -v --run TestFromConfig
func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pipeline.Providers = []string{"okx", "binance", "aggregator", "yahoo"}
	cfg.Aggregator.Venues = []string{"bybit", "binance"}

	set, err := FromConfig(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	require.Len(t, set.Candles, 4)
	assert.Equal(t, "okx", set.Candles[0].Name())
	assert.Equal(t, "yahoo", set.Candles[3].Name())
	assert.Same(t, set.Candles[0], set.Derivatives)

	cfg.Pipeline.Providers = []string{"coinbase"}
	_, err = FromConfig(cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

// go test -v --run TestCandleFromKlineRejectsOutOfRange
func TestCandleFromKlineRejectsOutOfRange(t *testing.T) {
	k := &gobinance.Kline{OpenTime: t0.UnixMilli(), Open: "100", High: "110", Low: "90", Close: "105", Volume: "12"}
	c, err := candleFromKline(k)
	require.NoError(t, err)
	assert.Equal(t, t0, c.Timestamp)

	k.Close = "-5"
	_, err = candleFromKline(k)
	assert.ErrorIs(t, err, market.ErrSchema)

	k.Close, k.Volume = "105", "NaN"
	_, err = candleFromKline(k)
	assert.ErrorIs(t, err, market.ErrSchema)
}
