package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"candlefuse/internal/market"
	"candlefuse/internal/paginate"

	bybit "github.com/bybit-exchange/bybit.go.api"
)

const providerName = "bybit"

// RESTClient fetches public market data through the official Bybit SDK.
type RESTClient struct {
	client *bybit.Client
}

func NewRESTClient(baseURL string, httpClient *http.Client) *RESTClient {
	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(baseURL))
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &RESTClient{client: client}
}

// KlinesPage fetches the window [start, start+limit bars) of klines.
// The returned cursor is the start of the bar following the newest row.
func (c *RESTClient) KlinesPage(ctx context.Context, category, symbol, interval string,
	start time.Time, limit int) (paginate.Page[market.Candle], error) {
	meta, err := ParseKlineInterval(interval)
	if err != nil {
		return paginate.Page[market.Candle]{}, err
	}
	end := start.Add(time.Duration(limit)*meta.Duration() - time.Millisecond)

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"interval": interval,
		"start":    start.UnixMilli(),
		"end":      end.UnixMilli(),
		"limit":    limit,
	}

	resp, err := c.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindTransport, err)
	}
	if resp.RetCode != 0 {
		return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindProvider,
			fmt.Errorf("bybit error %d: %s", resp.RetCode, resp.RetMsg))
	}

	// Result arrives as a generic map; round-trip it into the typed payload
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindSchema, err)
	}
	var result KlinesResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindSchema, fmt.Errorf("decode result: %w", err))
	}

	candles, _ := ParseKlineList(result.List)
	page := paginate.Page[market.Candle]{Records: candles, Rows: len(result.List)}
	for _, k := range candles {
		if k.Timestamp.After(page.Edge) {
			page.Edge = k.Timestamp
		}
	}
	next := end.Add(time.Millisecond)
	if !page.Edge.IsZero() {
		next = page.Edge.Add(meta.Duration())
	}
	page.Cursor = strconv.FormatInt(next.UnixMilli(), 10)
	return page, nil
}
