// Package batch runs one acquisition pass over the configured assets.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlefuse/internal/fallback"
	"candlefuse/internal/fusion"
	"candlefuse/internal/market"
	"candlefuse/internal/metrics"
	"candlefuse/internal/provider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrAssetsFailed = errors.New("one or more assets failed")

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Options struct {
	Bar          market.Bar
	DailyBar     *market.Bar // nil disables the daily candle fetch
	LookbackDays int
	AssetPause   time.Duration
}

// AssetResult is the outcome of one asset.
type AssetResult struct {
	Asset      market.Asset
	Status     string
	Provider   string
	Rows       int
	Attempts   []fallback.Attempt
	Kind       market.FaultKind
	Err        error
	FundingErr error
	OIErr      error
	DailyRows  int
	DailyErr   error
	Elapsed    time.Duration
}

type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []AssetResult
}

func (r Report) Failed() []AssetResult {
	var out []AssetResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

type Driver struct {
	orchestrator *fallback.Orchestrator
	derivatives  provider.DerivativesProvider
	daily        provider.CandleProvider
	sink         DatasetSink
	opts         Options
	log          *zap.Logger
	metrics      *metrics.Metrics
}

// NewDriver wires a driver. daily may be nil when no daily series is wanted.
func NewDriver(orchestrator *fallback.Orchestrator, derivatives provider.DerivativesProvider, daily provider.CandleProvider,
	sink DatasetSink, opts Options, log *zap.Logger, m *metrics.Metrics) *Driver {
	return &Driver{
		orchestrator: orchestrator,
		derivatives:  derivatives,
		daily:        daily,
		sink:         sink,
		opts:         opts,
		log:          log,
		metrics:      m,
	}
}

// Run processes assets one at a time. A failed asset never stops the run;
// the returned error wraps ErrAssetsFailed when any asset failed.
func (d *Driver) Run(ctx context.Context, assets []market.Asset) (Report, error) {
	report := Report{RunID: uuid.NewString(), Started: time.Now().UTC()}
	log := d.log.With(zap.String("run_id", report.RunID))
	log.Info("batch run started", zap.Int("assets", len(assets)), zap.String("bar", d.opts.Bar.Name))

	for i, asset := range assets {
		if i > 0 && d.opts.AssetPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.opts.AssetPause):
			}
		}
		if ctx.Err() != nil {
			report.Results = append(report.Results, AssetResult{Asset: asset, Status: StatusFailed, Err: ctx.Err()})
			continue
		}

		res := d.processAsset(ctx, log.With(zap.String("coin", asset.Coin), zap.String("symbol", asset.Symbol)), asset)
		d.metrics.ObserveAsset(res.Status, res.Elapsed)
		report.Results = append(report.Results, res)
	}

	report.Finished = time.Now().UTC()
	d.metrics.MarkRun(report.Finished)

	failed := report.Failed()
	if len(failed) > 0 {
		coins := make([]string, 0, len(failed))
		for _, f := range failed {
			coins = append(coins, f.Asset.Coin)
		}
		log.Error("batch run finished with failures", zap.Strings("failed", coins), zap.Int("assets", len(assets)))
		return report, fmt.Errorf("%w: %d of %d (%v)", ErrAssetsFailed, len(failed), len(assets), coins)
	}

	log.Info("batch run finished", zap.Int("assets", len(assets)), zap.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

func (d *Driver) processAsset(ctx context.Context, log *zap.Logger, asset market.Asset) AssetResult {
	start := time.Now()
	res := AssetResult{Asset: asset, Status: StatusFailed}

	outcome := d.orchestrator.Fetch(ctx, asset.Symbol, d.opts.Bar, d.opts.LookbackDays)
	res.Attempts = outcome.Attempts
	res.Provider = outcome.Provider
	if !outcome.OK() {
		res.Kind = outcome.Kind
		res.Err = outcome.Err
		log.Error("no usable candles", zap.String("kind", string(outcome.Kind)), zap.Error(outcome.Err))
		res.Elapsed = time.Since(start)
		return res
	}

	funding, err := d.derivatives.FetchFunding(ctx, asset.Symbol, d.opts.LookbackDays)
	if err != nil {
		res.FundingErr = err
		log.Warn("funding fetch degraded", zap.Int("records", len(funding)), zap.Error(err))
	}
	oi, err := d.derivatives.FetchOpenInterest(ctx, asset.Symbol, d.opts.Bar, d.opts.LookbackDays)
	if err != nil {
		res.OIErr = err
		log.Warn("open interest fetch degraded", zap.Int("records", len(oi)), zap.Error(err))
	}

	ds := fusion.Dataset(asset, d.opts.Bar, outcome.Provider, outcome.Candles, funding, oi)
	res.Rows = len(ds.Rows)

	if err := d.sink.WriteDataset(ctx, ds); err != nil {
		res.Err = fmt.Errorf("persist %s: %w", asset.Coin, err)
		log.Error("failed to persist dataset", zap.Error(err))
		res.Elapsed = time.Since(start)
		return res
	}

	d.fetchDaily(ctx, log, asset, &res)

	res.Status = StatusOK
	res.Elapsed = time.Since(start)
	log.Info("asset done",
		zap.String("provider", outcome.Provider),
		zap.Int("rows", res.Rows),
		zap.Int("funding", len(funding)),
		zap.Int("open_interest", len(oi)),
		zap.Time("newest", market.Latest(outcome.Candles)))
	return res
}

// fetchDaily stores the daily context series. Failures only log.
func (d *Driver) fetchDaily(ctx context.Context, log *zap.Logger, asset market.Asset, res *AssetResult) {
	if d.daily == nil || d.opts.DailyBar == nil {
		return
	}
	cs, ok := d.sink.(CandleSink)
	if !ok {
		return
	}

	candles, err := d.daily.FetchCandles(ctx, asset.Symbol, *d.opts.DailyBar, d.opts.LookbackDays)
	if len(candles) == 0 {
		res.DailyErr = err
		log.Warn("daily candles unavailable (non-critical)", zap.Error(err))
		return
	}
	if err := cs.WriteCandles(ctx, asset, *d.opts.DailyBar, candles); err != nil {
		res.DailyErr = err
		log.Warn("failed to persist daily candles", zap.Error(err))
		return
	}
	res.DailyRows = len(candles)
}
