package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"candlefuse/config"
	"candlefuse/internal/decode"
	"candlefuse/internal/market"
	"candlefuse/internal/paginate"
	"candlefuse/pkg/httpclient"
)

const (
	providerName = "binance"
	PathKlines   = "/api/v3/klines"
)

// APIError is Binance's error body, e.g. {"code":-1121,"msg":"Invalid symbol."}.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type RESTClient struct {
	http *httpclient.Client
}

func NewRESTClient(cfg config.RESTConfig) (*RESTClient, error) {
	c, err := httpclient.New(providerName, cfg)
	if err != nil {
		return nil, err
	}
	return &RESTClient{http: c}, nil
}

// KlinesPage fetches up to limit klines starting at startTime (oldest first).
// The cursor of the returned page is the last close time + 1ms.
func (c *RESTClient) KlinesPage(ctx context.Context, symbol, interval string, startTime time.Time, limit int) (paginate.Page[market.Candle], error) {
	query := url.Values{
		"symbol":    {symbol},
		"interval":  {interval},
		"startTime": {strconv.FormatInt(startTime.UnixMilli(), 10)},
		"limit":     {strconv.Itoa(limit)},
	}

	body, err := c.http.Get(ctx, PathKlines, query)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			var apiErr APIError
			if json.Unmarshal(statusErr.Body, &apiErr) == nil && apiErr.Code != 0 {
				return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindProvider,
					fmt.Errorf("binance error %d: %s", apiErr.Code, apiErr.Msg))
			}
			return paginate.Page[market.Candle]{}, market.NewFetchError(providerName, market.KindTransport, err)
		}
		return paginate.Page[market.Candle]{}, err
	}

	rows, err := decodeRows(body)
	if err != nil {
		return paginate.Page[market.Candle]{}, err
	}

	page := paginate.Page[market.Candle]{Rows: len(rows)}
	var lastClose time.Time
	for _, raw := range rows {
		candle, closeTime, err := ParseKline(raw)
		if closeTime.After(lastClose) {
			lastClose = closeTime
		}
		if err != nil {
			continue // skip undecodable record
		}
		page.Records = append(page.Records, candle)
		if candle.Timestamp.After(page.Edge) {
			page.Edge = candle.Timestamp
		}
	}
	if !lastClose.IsZero() {
		page.Cursor = strconv.FormatInt(lastClose.UnixMilli()+1, 10)
	}
	return page, nil
}

func decodeRows(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr APIError
		if err := json.Unmarshal(trimmed, &apiErr); err == nil && apiErr.Code != 0 {
			return nil, market.NewFetchError(providerName, market.KindProvider,
				fmt.Errorf("binance error %d: %s", apiErr.Code, apiErr.Msg))
		}
		return nil, market.NewFetchError(providerName, market.KindSchema, errors.New("expected kline array"))
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, market.NewFetchError(providerName, market.KindSchema, fmt.Errorf("decode klines: %w", err))
	}
	return rows, nil
}

// ParseKline decodes [openTime,o,h,l,c,v,closeTime,...] or a keyed object with the same names.
func ParseKline(raw json.RawMessage) (market.Candle, time.Time, error) {
	r, err := decode.ParseRow(raw)
	if err != nil {
		return market.Candle{}, time.Time{}, err
	}
	openTime, err := r.Millis("openTime", 0)
	if err != nil {
		return market.Candle{}, time.Time{}, err
	}
	var vals [5]float64
	for i, key := range []string{"open", "high", "low", "close", "volume"} {
		if vals[i], err = r.Float(key, i+1); err != nil {
			return market.Candle{}, time.Time{}, err
		}
	}
	closeTime, err := r.Millis("closeTime", 6)
	if err != nil {
		return market.Candle{}, time.Time{}, err
	}
	c := market.Candle{
		Timestamp: openTime,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}
	if err := c.Validate(); err != nil {
		return market.Candle{}, closeTime, err
	}
	return c, closeTime, nil
}
