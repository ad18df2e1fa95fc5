package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Translation metrics
var (
	TranslationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Total number of image translation requests by outcome.",
		},
		[]string{"status"},
	)

	TranslationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_duration_seconds",
			Help:    "End-to-end duration of image translations, cache hits included.",
			Buckets: []float64{0.05, 0.5, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"status"},
	)
)

// Browser session metrics
var (
	BrowserSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "browser_sessions_active",
			Help: "Number of headless browser sessions currently running.",
		},
	)

	BrowserSessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "browser_session_duration_seconds",
			Help:    "Duration of headless browser sessions by outcome.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		},
		[]string{"outcome"},
	)

	// UpstreamBreakerState is 0 when closed, 1 when half-open and 2 when open.
	UpstreamBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "State of the circuit breaker guarding the translation page (0=closed, 1=half-open, 2=open).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TranslationsTotal,
		TranslationDuration,
		BrowserSessionsActive,
		BrowserSessionDuration,
		UpstreamBreakerState,
	)
}
