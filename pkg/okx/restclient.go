package okx

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

const providerName = "okx"

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

// CandlesPage fetches one page of candles older than the "after" timestamp (newest first).
func (c *RESTClient) CandlesPage(ctx context.Context, instID, bar string, limit int, after string) (paginate.Page[market.Candle], error) {
	query := url.Values{
		"instId": {instID},
		"bar":    {bar},
		"limit":  {strconv.Itoa(limit)},
	}
	if after != "" {
		query.Set("after", after)
	}

	rows, err := c.data(ctx, PathCandles, query)
	if err != nil {
		return paginate.Page[market.Candle]{}, err
	}
	return buildPage(rows, ParseCandle, "ts", 0), nil
}

// FundingHistoryPage fetches one page of funding settlements older than "after".
func (c *RESTClient) FundingHistoryPage(ctx context.Context, swapID string, limit int, after string) (paginate.Page[market.FundingRecord], error) {
	query := url.Values{
		"instId": {swapID},
		"limit":  {strconv.Itoa(limit)},
	}
	if after != "" {
		query.Set("after", after)
	}

	rows, err := c.data(ctx, PathFundingRateHistory, query)
	if err != nil {
		return paginate.Page[market.FundingRecord]{}, err
	}
	return buildPage(rows, ParseFunding, "fundingTime", 4), nil
}

// OpenInterestHistoryPage fetches one page of open interest ending at "end".
func (c *RESTClient) OpenInterestHistoryPage(ctx context.Context, swapID, period string, limit int, end string) (paginate.Page[market.OpenInterestRecord], error) {
	query := url.Values{
		"instId": {swapID},
		"period": {period},
		"limit":  {strconv.Itoa(limit)},
	}
	if end != "" {
		query.Set("end", end)
	}

	rows, err := c.data(ctx, PathOpenInterestHistory, query)
	if err != nil {
		return paginate.Page[market.OpenInterestRecord]{}, err
	}
	return buildPage(rows, ParseOpenInterest, "ts", 0), nil
}

// RecentCandles returns the latest candles of one page, oldest first.
func (c *RESTClient) RecentCandles(ctx context.Context, instID, bar string, limit int) ([]market.Candle, error) {
	page, err := c.CandlesPage(ctx, instID, bar, limit, "")
	if err != nil {
		return nil, err
	}
	return market.Normalize(page.Records), nil
}

func (c *RESTClient) GetTicker(ctx context.Context, instID string) (Ticker, error) {
	r, err := c.first(ctx, PathTicker, url.Values{"instId": {instID}})
	if err != nil {
		return Ticker{}, err
	}
	last, err := r.Float("last", 0)
	if err != nil {
		return Ticker{}, err
	}
	open24h, err := r.Float("open24h", 0)
	if err != nil {
		return Ticker{}, err
	}
	return Ticker{Last: last, Open24h: open24h}, nil
}

// GetFundingRate returns the current funding rate of a swap as a fraction.
func (c *RESTClient) GetFundingRate(ctx context.Context, swapID string) (float64, error) {
	r, err := c.first(ctx, PathFundingRate, url.Values{"instId": {swapID}})
	if err != nil {
		return 0, err
	}
	return r.Float("fundingRate", 0)
}

// GetOpenInterest returns the current open interest of a swap in contracts.
func (c *RESTClient) GetOpenInterest(ctx context.Context, swapID string) (float64, error) {
	r, err := c.first(ctx, PathOpenInterest, url.Values{"instId": {swapID}})
	if err != nil {
		return 0, err
	}
	return r.Float("oi", 0)
}

func (c *RESTClient) first(ctx context.Context, path string, query url.Values) (decode.Row, error) {
	rows, err := c.data(ctx, path, query)
	if err != nil {
		return decode.Row{}, err
	}
	if len(rows) == 0 {
		return decode.Row{}, market.NewFetchError(providerName, market.KindEmpty, market.ErrEmptyPage)
	}
	return decode.ParseRow(rows[0])
}

// data performs the request and unwraps the envelope into raw rows.
func (c *RESTClient) data(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	body, err := c.http.Get(ctx, path, query)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			if _, envErr := decodeEnvelope(statusErr.Body); market.KindOf(envErr) == market.KindProvider {
				return nil, envErr
			}
			return nil, market.NewFetchError(providerName, market.KindTransport, err)
		}
		return nil, err
	}
	return decodeEnvelope(body)
}

// decodeEnvelope accepts the standard {code,msg,data} envelope or a bare array of rows.
func decodeEnvelope(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, market.NewFetchError(providerName, market.KindSchema, err)
		}
		return rows, nil
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, market.NewFetchError(providerName, market.KindSchema, fmt.Errorf("decode response: %w", err))
	}
	if resp.Code != "" && resp.Code != "0" {
		return nil, market.NewFetchError(providerName, market.KindProvider, fmt.Errorf("okx error %s: %s", resp.Code, resp.Msg))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return nil, market.NewFetchError(providerName, market.KindSchema, fmt.Errorf("decode data: %w", err))
	}
	return rows, nil
}

// buildPage decodes rows, skipping undecodable ones, and points the cursor at the oldest timestamp.
func buildPage[T market.Timestamped](rows []json.RawMessage, parse func(json.RawMessage) (T, error), tsKey string, tsIndex int) paginate.Page[T] {
	page := paginate.Page[T]{Rows: len(rows)}

	var oldest time.Time
	for _, raw := range rows {
		if ts, ok := decode.RowTime(raw, tsKey, tsIndex); ok && (oldest.IsZero() || ts.Before(oldest)) {
			oldest = ts
		}

		rec, err := parse(raw)
		if err != nil {
			continue // skip undecodable record
		}
		page.Records = append(page.Records, rec)
	}

	if !oldest.IsZero() {
		page.Edge = oldest
		page.Cursor = strconv.FormatInt(oldest.UnixMilli(), 10)
	}
	return page
}
