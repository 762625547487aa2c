package okx

import (
	"encoding/json"

	"candlefuse/internal/decode"
	"candlefuse/internal/market"
)

// ParseCandle decodes [ts,o,h,l,c,vol,...] or {"ts","o","h","l","c","vol"}.
func ParseCandle(raw json.RawMessage) (market.Candle, error) {
	r, err := decode.ParseRow(raw)
	if err != nil {
		return market.Candle{}, err
	}
	ts, err := r.Millis("ts", 0)
	if err != nil {
		return market.Candle{}, err
	}
	var vals [5]float64
	for i, key := range []string{"o", "h", "l", "c", "vol"} {
		if vals[i], err = r.Float(key, i+1); err != nil {
			return market.Candle{}, err
		}
	}
	c := market.Candle{Timestamp: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	if err := c.Validate(); err != nil {
		return market.Candle{}, err
	}
	return c, nil
}

// ParseFunding decodes {"fundingTime","fundingRate"} with positional fallback ts=[4], rate=[2].
func ParseFunding(raw json.RawMessage) (market.FundingRecord, error) {
	r, err := decode.ParseRow(raw)
	if err != nil {
		return market.FundingRecord{}, err
	}
	ts, err := r.Millis("fundingTime", 4)
	if err != nil {
		return market.FundingRecord{}, err
	}
	rate, err := r.Float("fundingRate", 2)
	if err != nil {
		return market.FundingRecord{}, err
	}
	f := market.FundingRecord{Timestamp: ts, Rate: rate}
	if err := f.Validate(); err != nil {
		return market.FundingRecord{}, err
	}
	return f, nil
}

// ParseOpenInterest decodes {"ts","oi"} with positional fallback [ts, oi, ...].
func ParseOpenInterest(raw json.RawMessage) (market.OpenInterestRecord, error) {
	r, err := decode.ParseRow(raw)
	if err != nil {
		return market.OpenInterestRecord{}, err
	}
	ts, err := r.Millis("ts", 0)
	if err != nil {
		return market.OpenInterestRecord{}, err
	}
	oi, err := r.Float("oi", 1)
	if err != nil {
		return market.OpenInterestRecord{}, err
	}
	rec := market.OpenInterestRecord{Timestamp: ts, Value: oi}
	if err := rec.Validate(); err != nil {
		return market.OpenInterestRecord{}, err
	}
	return rec, nil
}
