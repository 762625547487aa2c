package memorystore

import (
	"time"

	"candlefuse/internal/market"
)

// Summary describes the newest row of a stored dataset.
type Summary struct {
	Coin         string    `json:"coin"`
	Bar          string    `json:"bar"`
	Provider     string    `json:"provider"` // provider that supplied the candles
	Rows         int       `json:"rows"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	LastClose    float64   `json:"last_close"`
	FundingRate  float64   `json:"funding_rate"`
	OpenInterest float64   `json:"open_interest"`
}

func Summarize(ds market.FusedDataset) Summary {
	s := Summary{
		Coin:     ds.Asset.Coin,
		Bar:      ds.Bar.Name,
		Provider: ds.Provider,
		Rows:     len(ds.Rows),
	}
	if len(ds.Rows) == 0 {
		return s
	}
	first, last := ds.Rows[0], ds.Rows[len(ds.Rows)-1]
	s.From = first.Timestamp
	s.To = last.Timestamp
	s.LastClose = last.Close
	s.FundingRate = last.FundingRate
	s.OpenInterest = last.OpenInterest
	return s
}
