package okx

import "encoding/json"

// Response represents the standard OKX v5 REST envelope.
type Response struct {
	Code string          `json:"code"` // "0" means success; anything else is an error code
	Msg  string          `json:"msg"`  // Human-readable message describing the error
	Data json.RawMessage `json:"data"` // Delay decoding // rows, either keyed objects or positional arrays
}

// Ticker is the subset of /api/v5/market/ticker used by snapshots.
type Ticker struct {
	Last    float64 // "last"
	Open24h float64 // "open24h"
}

// Change24h is the percentage change from the 24h open, 0 when the open is unknown.
func (t Ticker) Change24h() float64 {
	if t.Open24h == 0 {
		return 0
	}
	return (t.Last - t.Open24h) / t.Open24h * 100
}

const (
	PathCandles             = "/api/v5/market/candles"
	PathTicker              = "/api/v5/market/ticker"
	PathFundingRateHistory  = "/api/v5/public/funding-rate-history"
	PathFundingRate         = "/api/v5/public/funding-rate"
	PathOpenInterest        = "/api/v5/public/open-interest"
	PathOpenInterestHistory = "/api/v5/rubik/stat/contracts/open-interest-history"
)
