// Package fallback walks the candle providers in priority order until one yields data.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlefuse/internal/freshness"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/provider"

	"go.uber.org/zap"
)

var ErrExhausted = errors.New("every provider returned an empty series")

// Attempt is the result of one provider call.
type Attempt struct {
	Provider string
	Candles  int
	Kind     market.FaultKind // KindNone when the series is usable
	Err      error
	Elapsed  time.Duration
}

func (a Attempt) OK() bool { return a.Kind == market.KindNone }

// Outcome is the orchestrator's final answer for one symbol.
type Outcome struct {
	Provider string // provider whose series was selected; empty when none
	Candles  []market.Candle
	Attempts []Attempt
	Kind     market.FaultKind // KindNone, KindExhausted or KindStale
	Err      error
}

func (o Outcome) OK() bool { return o.Kind == market.KindNone }

type Orchestrator struct {
	providers []provider.CandleProvider
	validator *freshness.Validator
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func New(providers []provider.CandleProvider, validator *freshness.Validator, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{providers: providers, validator: validator, log: log, metrics: m}
}

// Fetch tries each provider in order and stops at the first non-empty series.
// Freshness is checked once, on the selected series; a stale series is not retried elsewhere.
func (o *Orchestrator) Fetch(ctx context.Context, symbol string, bar market.Bar, lookbackDays int) Outcome {
	var out Outcome

	for _, p := range o.providers {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		candles, err := p.FetchCandles(ctx, symbol, bar, lookbackDays)
		attempt := Attempt{Provider: p.Name(), Candles: len(candles), Err: err, Elapsed: time.Since(start)}
		if len(candles) == 0 {
			attempt.Kind = market.KindOf(err)
			if attempt.Kind == market.KindNone {
				attempt.Kind = market.KindEmpty
			}
		}
		out.Attempts = append(out.Attempts, attempt)
		o.metrics.ObserveAttempt(attempt.Provider, string(attempt.Kind))

		if !attempt.OK() {
			o.log.Warn("provider returned no candles, falling back",
				zap.String("provider", attempt.Provider),
				zap.String("symbol", symbol),
				zap.String("kind", string(attempt.Kind)),
				zap.Error(err))
			continue
		}
		if err != nil {
			o.log.Warn("provider returned a partial series",
				zap.String("provider", attempt.Provider),
				zap.String("symbol", symbol),
				zap.Int("candles", len(candles)),
				zap.Error(err))
		}

		out.Provider = attempt.Provider
		out.Candles = candles
		break
	}

	if len(out.Candles) == 0 {
		out.Kind = market.KindExhausted
		out.Err = fmt.Errorf("%s: %w", symbol, ErrExhausted)
		if ctx.Err() != nil {
			out.Err = fmt.Errorf("%s: %w", symbol, ctx.Err())
		}
		return out
	}

	if err := o.validator.Validate(out.Candles); err != nil {
		out.Kind = market.KindStale
		out.Err = fmt.Errorf("%s from %s: %w", symbol, out.Provider, err)
		return out
	}
	return out
}
