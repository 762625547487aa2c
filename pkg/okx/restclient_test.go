package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewRESTClient(config.RESTConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

// go test -v --run TestCandlesPage
func TestCandlesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathCandles, r.URL.Path)
		assert.Equal(t, "4H", r.URL.Query().Get("bar"))
		assert.Equal(t, "300", r.URL.Query().Get("limit"))
		assert.Equal(t, "1717200000000", r.URL.Query().Get("after"))
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			["1717185600000","67000.1","67500","66800","67200.5","123.4","0","0","1"],
			["1717171200000","bad","67500","66800","67200.5","123.4","0","0","1"],
			{"ts":"1717156800000","o":"66000","h":"66500","l":"65900","c":"66400","vol":"99"}
		]}`))
	})

	page, err := c.CandlesPage(context.Background(), "BTC-USDT", "4H", 300, "1717200000000")
	require.NoError(t, err)

	assert.Equal(t, 3, page.Rows)
	require.Len(t, page.Records, 2, "undecodable row is skipped")
	assert.Equal(t, 67200.5, page.Records[0].Close)
	assert.Equal(t, 99.0, page.Records[1].Volume)
	assert.Equal(t, "1717156800000", page.Cursor)
	assert.Equal(t, time.UnixMilli(1717156800000).UTC(), page.Edge)
}

// go test -v --run TestFundingHistoryPositionalFallback
func TestFundingHistoryPositionalFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC-USDT-SWAP", r.URL.Query().Get("instId"))
		_, _ = w.Write([]byte(`{"code":"0","data":[
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0001","fundingTime":"1717171200000"},
			["BTC-USDT-SWAP","x","-0.0002","y","1717142400000"],
			{"instId":"BTC-USDT-SWAP","fundingTime":"1717113600000"}
		]}`))
	})

	page, err := c.FundingHistoryPage(context.Background(), "BTC-USDT-SWAP", 100, "")
	require.NoError(t, err)

	require.Len(t, page.Records, 2)
	assert.Equal(t, 0.0001, page.Records[0].Rate)
	assert.Equal(t, -0.0002, page.Records[1].Rate)
	assert.Equal(t, time.UnixMilli(1717142400000).UTC(), page.Records[1].Timestamp)
	assert.Equal(t, "1717113600000", page.Cursor, "cursor follows the oldest timestamp even when the row is skipped")
}

// go test -v --run TestOpenInterestBareList
func TestOpenInterestBareList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1H", r.URL.Query().Get("period"))
		assert.Equal(t, "1717200000000", r.URL.Query().Get("end"))
		_, _ = w.Write([]byte(`[{"ts":"1717196400000","oi":"1500.5","oiCcy":"15"},["1717192800000","1400"]]`))
	})

	page, err := c.OpenInterestHistoryPage(context.Background(), "BTC-USDT-SWAP", "1H", 100, "1717200000000")
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, 1500.5, page.Records[0].Value)
	assert.Equal(t, 1400.0, page.Records[1].Value)
}

// go test -v --run TestProviderErrorCode
func TestProviderErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	})

	_, err := c.CandlesPage(context.Background(), "NOPE-USDT", "4H", 300, "")
	require.Error(t, err)
	assert.Equal(t, market.KindProvider, market.KindOf(err))
}

// go test -v --run TestProviderErrorOnBadStatus
func TestProviderErrorOnBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"50011","msg":"Too Many Requests"}`))
	})

	_, err := c.CandlesPage(context.Background(), "BTC-USDT", "4H", 300, "")
	assert.Equal(t, market.KindProvider, market.KindOf(err))
}

// go test -v --run TestSchemaFault
func TestSchemaFault(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.CandlesPage(context.Background(), "BTC-USDT", "4H", 300, "")
	assert.Equal(t, market.KindSchema, market.KindOf(err))
}

// go test -v --run TestSnapshotEndpoints
func TestSnapshotEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathTicker:
			_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT","last":"110","open24h":"100"}]}`))
		case PathFundingRate:
			_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT-SWAP","fundingRate":"0.0003"}]}`))
		case PathOpenInterest:
			_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT-SWAP","oi":"2500"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	ticker, err := c.GetTicker(ctx, "BTC-USDT")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, ticker.Change24h(), 1e-9)

	rate, err := c.GetFundingRate(ctx, "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, 0.0003, rate)

	oi, err := c.GetOpenInterest(ctx, "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, oi)
}
