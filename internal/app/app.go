package app

import (
	"context"
	"errors"
	"fmt"

	"candlefuse/config"
	"candlefuse/internal/batch"
	"candlefuse/internal/cache"
	"candlefuse/internal/fallback"
	"candlefuse/internal/freshness"
	"candlefuse/internal/market"
	"candlefuse/internal/memorystore"
	"candlefuse/internal/metrics"
	"candlefuse/internal/provider"
	"candlefuse/internal/scheduler"
	"candlefuse/internal/snapshot"
	"candlefuse/pkg/okx"
	"candlefuse/pkg/storage/csv"
	"candlefuse/pkg/storage/objectstore"
	"candlefuse/pkg/storage/postgres"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// App holds the wired pipeline.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	driver    *batch.Driver
	datasets  *memorystore.MemoryDatasetStore
	snapshots *snapshot.Loader
	cache     *cache.Cache
	closers   []func() error
}

// New builds every component named in cfg. Close releases the sinks and stores it opened.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	bar, err := market.ParseBar(cfg.Pipeline.Bar)
	if err != nil {
		return nil, err
	}
	opts := batch.Options{
		Bar:          bar,
		LookbackDays: cfg.Pipeline.LookbackDays,
		AssetPause:   cfg.Pipeline.AssetPause,
	}
	if cfg.Pipeline.DailyBar != "" {
		daily, err := market.ParseBar(cfg.Pipeline.DailyBar)
		if err != nil {
			return nil, err
		}
		opts.DailyBar = &daily
	}

	providers, err := provider.FromConfig(cfg, log, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build providers: %w", err)
	}
	orchestrator := fallback.New(providers.Candles, freshness.New(cfg.Pipeline.MaxAgeFor(bar)), log, a.metrics)

	sink, err := a.buildSinks(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.driver = batch.NewDriver(orchestrator, providers.Derivatives, providers.Candles[0], sink, opts, log, a.metrics)

	snapClient, err := okx.NewRESTClient(cfg.Snapshot.REST)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.snapshots = &snapshot.Loader{Cfg: cfg.Snapshot, RestClient: snapClient, Logger: log}

	store, err := a.buildCacheStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.cache = cache.New(store, cfg.Cache.TTL, a.Generate, log)
	return a, nil
}

// buildSinks fans out to the in-memory store plus every enabled storage backend.
func (a *App) buildSinks(ctx context.Context) (batch.MultiSink, error) {
	a.datasets = memorystore.NewDatasetStore()
	sinks := batch.MultiSink{a.datasets}

	if a.cfg.Storage.CSV.Enabled {
		w, err := csv.New(a.cfg.Storage.CSV.Dir)
		if err != nil {
			return nil, fmt.Errorf("csv sink: %w", err)
		}
		sinks = append(sinks, w)
	}

	if a.cfg.Storage.Postgres.Enabled {
		client, err := postgres.InitializeAndMigrate(a.cfg.Postgres, a.cfg.Log.Environment, a.cfg.Storage.Postgres.CreateDB)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: %w", err)
		}
		s := postgres.NewSink(client)
		a.closers = append(a.closers, s.Close)
		sinks = append(sinks, s)
	}

	if a.cfg.Storage.S3.Enabled {
		s, err := objectstore.New(ctx, a.cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	a.log.Info("sinks ready", zap.Strings("sinks", names))
	return sinks, nil
}

func (a *App) buildCacheStore() (cache.Store, error) {
	switch a.cfg.Cache.Backend {
	case "", "file":
		return cache.NewFileStore(a.cfg.Cache.File), nil
	case "memory":
		return cache.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		return cache.NewRedisStore(client, a.cfg.Cache.Key, a.cfg.Cache.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}

// RunBatch runs one pass over the configured assets and flushes the metrics textfile.
func (a *App) RunBatch(ctx context.Context) (batch.Report, error) {
	report, err := a.driver.Run(ctx, a.cfg.Pipeline.Assets)
	if path := a.cfg.Metrics.Textfile; path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			a.log.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(werr))
		}
	}
	return report, err
}

// Snapshots loads the live view of every configured coin.
func (a *App) Snapshots(ctx context.Context) []snapshot.Snapshot {
	return a.snapshots.LoadAll(ctx, a.coins())
}

// Generate builds a fresh analysis document. Failed assets are listed, not fatal.
func (a *App) Generate(ctx context.Context) (*cache.Document, error) {
	report, err := a.RunBatch(ctx)
	if err != nil && !errors.Is(err, batch.ErrAssetsFailed) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	doc := &cache.Document{
		RunID:     report.RunID,
		Snapshots: a.Snapshots(ctx),
		Datasets:  a.datasets.Summaries(),
	}
	for _, f := range report.Failed() {
		doc.Failed = append(doc.Failed, f.Asset.Coin)
	}
	return doc, nil
}

// Document returns the cached document, regenerating it when stale or forced.
func (a *App) Document(ctx context.Context, force bool) (*cache.Document, error) {
	return a.cache.Get(ctx, force)
}

// Schedule refreshes the cached document every cache.interval until ctx ends.
func (a *App) Schedule(ctx context.Context) {
	p := &scheduler.Periodic{
		Interval: a.cfg.Cache.Interval,
		Logger:   a.log,
		Job: func(ctx context.Context) error {
			_, err := a.cache.Refresh(ctx)
			return err
		},
	}
	p.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (a *App) coins() []string {
	coins := make([]string, 0, len(a.cfg.Pipeline.Assets))
	for _, asset := range a.cfg.Pipeline.Assets {
		coins = append(coins, asset.Coin)
	}
	return coins
}
