package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"candlefuse/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestParseKlineList
func TestParseKlineList(t *testing.T) {
	raw := [][]string{
		{"1717228800000", "67100", "67900", "67000", "67800", "12", "800000"},
		{"1717214400000", "67200", "x", "67000", "67100", "8", "500000"},
		{"1717200000000", "67000"},
		{"1717185600000", "NaN", "67900", "67000", "67800", "12", "800000"},
		{"1717171200000", "67100", "67900", "67000", "67800", "-3", "800000"},
	}

	out, skipped := ParseKlineList(raw)
	require.Len(t, out, 1)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, 67800.0, out[0].Close)
	assert.Equal(t, time.UnixMilli(1717228800000).UTC(), out[0].Timestamp)
}

// go test -v --run TestParseKlineInterval
func TestParseKlineInterval(t *testing.T) {
	meta, err := ParseKlineInterval("240")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, meta.Duration())
	assert.Equal(t, string(Interval240Min), meta.APIValue)

	_, err = ParseKlineInterval("7")
	assert.Error(t, err)
}

// go test -v --run TestKlinesPage
func TestKlinesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "240", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","symbol":"BTCUSDT","list":[
			["1717214400000","67200","67300","67000","67100","8","500000"],
			["1717200000000","67000","67500","66800","67200","10","700000"]
		]},"retExtInfo":{},"time":1717220000000}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, srv.Client())
	start := time.UnixMilli(1717200000000).UTC()

	page, err := c.KlinesPage(context.Background(), "linear", "BTCUSDT", "240", start, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Rows)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "1717228800000", page.Cursor)
}

// go test -v --run TestKlinesPageRetCode
func TestKlinesPageRetCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"params error: symbol invalid","result":{},"retExtInfo":{},"time":1717220000000}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, srv.Client())
	_, err := c.KlinesPage(context.Background(), "linear", "NOPE", "240", time.Now(), 10)
	assert.Equal(t, market.KindProvider, market.KindOf(err))
}
