// Package metrics exposes Prometheus metrics for provider calls, trackings and alerts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer: every method is a no-op then.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec

	Trackings        *prometheus.CounterVec
	TrackingDuration prometheus.Histogram
	OddsSources      *prometheus.CounterVec

	WatchTicks  *prometheus.CounterVec
	WatchAlerts *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_provider_requests_total",
				Help: "Football data provider requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livebet_provider_request_duration_seconds",
				Help:    "Football data provider request latency",
				Buckets: prometheus.ExponentialBuckets(0.025, 2, 10),
			},
			[]string{"endpoint"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_provider_cache_lookups_total",
				Help: "Provider response cache lookups",
			},
			[]string{"result"},
		),
		Trackings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_trackings_total",
				Help: "Live trackings by result (ok or error kind)",
			},
			[]string{"result"},
		),
		TrackingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "livebet_tracking_duration_seconds",
				Help:    "Time to build a full live tracking",
				Buckets: prometheus.DefBuckets,
			},
		),
		OddsSources: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_option_odds_total",
				Help: "Option prices by source (market or simulated)",
			},
			[]string{"source"},
		),
		WatchTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_watch_ticks_total",
				Help: "Watch loop fixture refreshes",
			},
			[]string{"outcome"},
		),
		WatchAlerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livebet_watch_alerts_total",
				Help: "Alerts sent by the watch loop",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProviderRequests,
		m.ProviderLatency,
		m.CacheLookups,
		m.Trackings,
		m.TrackingDuration,
		m.OddsSources,
		m.WatchTicks,
		m.WatchAlerts,
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProviderRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	m.ProviderLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTracking(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Trackings.WithLabelValues(result).Inc()
	m.TrackingDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveOddsSource(source string) {
	if m == nil {
		return
	}
	m.OddsSources.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveWatchTick(outcome string) {
	if m == nil {
		return
	}
	m.WatchTicks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAlert(kind string) {
	if m == nil {
		return
	}
	m.WatchAlerts.WithLabelValues(kind).Inc()
}
