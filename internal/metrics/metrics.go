// Package metrics exposes harvester counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bidplus"

// Metrics holds the collectors updated by the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	PagesFetched     prometheus.Counter
	BidsScanned      prometheus.Counter
	BidsDiscarded    prometheus.Counter
	BidsMatched      prometheus.Counter
	BidsRejected     *prometheus.CounterVec
	Resolutions      *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	RateLimitHits    prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
	LastSeenEpoch    prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_pages_fetched_total",
			Help:      "Listing pages fetched.",
		}),
		BidsScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_scanned_total",
			Help:      "Listing records examined.",
		}),
		BidsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_discarded_total",
			Help:      "Listing records without a usable identifier.",
		}),
		BidsMatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_matched_total",
			Help:      "Bids that passed eligibility and all filters.",
		}),
		BidsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_rejected_total",
			Help:      "Eligible bids rejected by a filter.",
		}, []string{"filter"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_resolutions_total",
			Help:      "Document resolution outcomes.",
		}, []string{"outcome"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_downloads_total",
			Help:      "Document download outcomes.",
		}, []string{"status"}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Portal responses with HTTP 429.",
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Portal request latency by stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 90},
		}, []string{"stage"}),
		LastSeenEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_last_seen_epoch",
			Help:      "Persisted watermark after the last run.",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// ObserveRequest records latency for one portal request stage.
func (m *Metrics) ObserveRequest(stage string, started time.Time) {
	m.RequestLatency.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
