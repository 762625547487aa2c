// Package metrics holds the pipeline's Prometheus collectors on a private registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "candlefuse"

type Metrics struct {
	registry *prometheus.Registry

	ProviderAttempts *prometheus.CounterVec
	Pages            *prometheus.CounterVec
	Skipped          *prometheus.CounterVec
	CapReached       *prometheus.CounterVec
	Assets           *prometheus.CounterVec
	AssetDuration    prometheus.Histogram
	LastRun          prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Candle fetch attempts by provider and fault kind (\"ok\" on success).",
		}, []string{"provider", "kind"}),
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages requested from providers.",
		}, []string{"provider", "series"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Raw records that could not be decoded.",
		}, []string{"provider", "series"}),
		CapReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pagination_cap_reached_total",
			Help:      "Paginated fetches stopped by the iteration cap.",
		}, []string{"provider", "series"}),
		Assets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_processed_total",
			Help:      "Assets processed by outcome.",
		}, []string{"status"}),
		AssetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_duration_seconds",
			Help:      "Wall time spent on one asset.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed batch run.",
		}),
	}

	m.registry.MustRegister(m.ProviderAttempts, m.Pages, m.Skipped, m.CapReached, m.Assets, m.AssetDuration, m.LastRun)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePages records the outcome of one paginated fetch.
func (m *Metrics) ObservePages(provider, series string, pages, skipped int, capped bool) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(provider, series).Add(float64(pages))
	m.Skipped.WithLabelValues(provider, series).Add(float64(skipped))
	if capped {
		m.CapReached.WithLabelValues(provider, series).Inc()
	}
}

// ObserveAttempt counts one candle fetch attempt; kind is empty on success.
func (m *Metrics) ObserveAttempt(provider, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.ProviderAttempts.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) ObserveAsset(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Assets.WithLabelValues(status).Inc()
	m.AssetDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) MarkRun(at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(at.Unix()))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
