package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"
	"candlefuse/pkg/httpclient"
)

const providerName = "yahoo"

// ChartResponse is the envelope of /v8/finance/chart/{symbol}.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartResult struct {
	Timestamp  []int64 `json:"timestamp"` // seconds
	Indicators struct {
		Quote []Quote `json:"quote"`
	} `json:"indicators"`
}

// Quote holds parallel columns; missing bars are null.
type Quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg config.RESTConfig) (*Client, error) {
	c, err := httpclient.New(providerName, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

// Chart fetches native bars of the given interval in [from, to].
// Bars with any null column are skipped; the skipped count is returned.
func (c *Client) Chart(ctx context.Context, symbol, interval string, from, to time.Time) ([]market.Candle, int, error) {
	query := url.Values{
		"interval": {interval},
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Unix(), 10)},
	}

	body, err := c.http.Get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			if chartErr := parseChartError(statusErr.Body); chartErr != nil {
				return nil, 0, chartErr
			}
			return nil, 0, market.NewFetchError(providerName, market.KindTransport, err)
		}
		return nil, 0, err
	}

	var resp ChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, market.NewFetchError(providerName, market.KindSchema, fmt.Errorf("decode chart: %w", err))
	}
	if resp.Chart.Error != nil {
		return nil, 0, providerError(resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, 0, nil
	}

	candles, skipped := ParseChart(resp.Chart.Result[0])
	return candles, skipped, nil
}

// ParseChart zips the timestamp and quote columns into candles.
func ParseChart(r ChartResult) ([]market.Candle, int) {
	if len(r.Indicators.Quote) == 0 {
		return nil, len(r.Timestamp)
	}
	q := r.Indicators.Quote[0]

	var (
		out     []market.Candle
		skipped int
	)
	for i, ts := range r.Timestamp {
		open, ok1 := at(q.Open, i)
		high, ok2 := at(q.High, i)
		low, ok3 := at(q.Low, i)
		closePrice, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			skipped++
			continue
		}
		volume, _ := at(q.Volume, i)
		c := market.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		}
		if c.Validate() != nil {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

func at(col []*float64, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil {
		return 0, false
	}
	return *col[i], true
}

func parseChartError(body []byte) error {
	var resp ChartResponse
	if json.Unmarshal(body, &resp) != nil || resp.Chart.Error == nil {
		return nil
	}
	return providerError(resp.Chart.Error)
}

func providerError(e *ChartError) error {
	return market.NewFetchError(providerName, market.KindProvider, fmt.Errorf("yahoo error %s: %s", e.Code, e.Description))
}
