// Package snapshot assembles the live market view of each asset from current OKX endpoints.
package snapshot

import (
	"context"

	"candlefuse/config"
	"candlefuse/internal/indicator"
	"candlefuse/internal/market"
	"candlefuse/pkg/okx"

	"go.uber.org/zap"
)

// MarketClient is the subset of the OKX REST client used for snapshots.
type MarketClient interface {
	GetTicker(ctx context.Context, instID string) (okx.Ticker, error)
	RecentCandles(ctx context.Context, instID, bar string, limit int) ([]market.Candle, error)
	GetFundingRate(ctx context.Context, swapID string) (float64, error)
	GetOpenInterest(ctx context.Context, swapID string) (float64, error)
}

// Snapshot is the live view of one coin. Every field falls back to its neutral value on failure.
type Snapshot struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Change24h    float64 `json:"change_24h"`    // percent
	RSI4h        float64 `json:"rsi_4h"`        // RSI of the 4H closes
	FundingRate  float64 `json:"funding_rate"`  // percent
	OpenInterest float64 `json:"open_interest"` // contracts
}

type Loader struct {
	Cfg        config.SnapshotConfig
	RestClient MarketClient
	Logger     *zap.Logger
}

// Load fetches the four sub-views of one coin independently.
func (l *Loader) Load(ctx context.Context, coin string) Snapshot {
	instID := market.SpotSymbol(coin)
	swapID := market.SwapSymbol(instID)
	log := l.Logger.With(zap.String("symbol", instID))

	snap := Snapshot{Symbol: coin, RSI4h: indicator.NeutralRSI}

	if ticker, err := l.RestClient.GetTicker(ctx, instID); err != nil {
		log.Warn("ticker failed", zap.Error(err))
	} else {
		snap.Price = ticker.Last
		snap.Change24h = ticker.Change24h()
	}

	if candles, err := l.RestClient.RecentCandles(ctx, instID, market.Bar4H.OKX, l.Cfg.RSICandles); err != nil {
		log.Warn("rsi candles failed", zap.Error(err))
	} else {
		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}
		snap.RSI4h = indicator.RSI(closes, l.Cfg.RSIPeriod)
	}

	if rate, err := l.RestClient.GetFundingRate(ctx, swapID); err != nil {
		log.Warn("funding rate failed", zap.Error(err))
	} else {
		snap.FundingRate = rate * 100
	}

	if oi, err := l.RestClient.GetOpenInterest(ctx, swapID); err != nil {
		log.Warn("open interest failed", zap.Error(err))
	} else {
		snap.OpenInterest = oi
	}

	return snap
}

// LoadAll loads every coin in order.
func (l *Loader) LoadAll(ctx context.Context, coins []string) []Snapshot {
	out := make([]Snapshot, 0, len(coins))
	for _, coin := range coins {
		if ctx.Err() != nil {
			l.Logger.Warn("snapshot loading interrupted", zap.Error(ctx.Err()))
			break
		}
		out = append(out, l.Load(ctx, coin))
	}
	l.Logger.Info("loaded snapshots", zap.Int("count", len(out)))
	return out
}
