package binance

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

// go test -v --run TestKlinesPage
func TestKlinesPage(t *testing.T) {
	start := time.UnixMilli(1717200000000).UTC()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathKlines, r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		assert.Equal(t, "1717200000000", r.URL.Query().Get("startTime"))
		_, _ = w.Write([]byte(`[
			[1717200000000,"67000","67500","66800","67200","10.5",1717214399999,"0",1,"0","0","0"],
			[1717214400000,"67200","67300","","67100","8",1717228799999,"0",1,"0","0","0"],
			[1717228800000,"67100","67900","67000","67800","12",1717243199999,"0",1,"0","0","0"]
		]`))
	})

	page, err := c.KlinesPage(context.Background(), "BTCUSDT", "4h", start, 1000)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Rows)
	require.Len(t, page.Records, 2)
	assert.Equal(t, start, page.Records[0].Timestamp)
	assert.Equal(t, "1717243200000", page.Cursor)
	assert.Equal(t, time.UnixMilli(1717228800000).UTC(), page.Edge)
}

// go test -v --run TestKlinesProviderError
func TestKlinesProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := c.KlinesPage(context.Background(), "NOPEUSDT", "4h", time.Now(), 1000)
	require.Error(t, err)
	assert.Equal(t, market.KindProvider, market.KindOf(err))
}

// go test -v --run TestKlinesGeoBlocked
func TestKlinesGeoBlocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
		_, _ = w.Write([]byte(`restricted location`))
	})

	_, err := c.KlinesPage(context.Background(), "BTCUSDT", "4h", time.Now(), 1000)
	assert.Equal(t, market.KindTransport, market.KindOf(err))
}

// go test -v --run TestKlinesPageSkipsOutOfRange
func TestKlinesPageSkipsOutOfRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			[1717200000000,"67000","67500","66800","67200","10.5",1717214399999,"0",1,"0","0","0"],
			[1717214400000,"-1","67300","67000","67100","8",1717228799999,"0",1,"0","0","0"],
			[1717228800000,"67100","67900","67000","67800","NaN",1717243199999,"0",1,"0","0","0"]
		]`))
	})

	page, err := c.KlinesPage(context.Background(), "BTCUSDT", "4h", time.UnixMilli(1717200000000), 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Rows)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "1717243200000", page.Cursor, "cursor moves past rejected rows")

	_, _, err = ParseKline([]byte(`[1717200000000,"67000","67500","66800","Inf","1",1717214399999]`))
	assert.ErrorIs(t, err, market.ErrSchema)
}
