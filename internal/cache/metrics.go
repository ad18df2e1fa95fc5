package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache metrics, labelled with the Group from Options.
var (
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries dropped from the cache.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal)
}

var (
	gaugesMu sync.Mutex
	gauges   = map[string]prometheus.GaugeFunc{}
	// registerer is replaced in tests by an isolated registry.
	registerer prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerEntriesGauge exposes cache_entries{cache=group}, computed by count on every
// scrape. A gauge already registered for group is replaced.
func registerEntriesGauge(group string, count func() int) prometheus.GaugeFunc {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "cache_entries",
			Help:        "Current number of entries in the cache.",
			ConstLabels: prometheus.Labels{"cache": group},
		},
		func() float64 { return float64(count()) },
	)

	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	if old, ok := gauges[group]; ok {
		registerer.Unregister(old)
	}
	gauges[group] = gauge
	_ = registerer.Register(gauge)
	return gauge
}

func unregisterEntriesGauge(group string) {
	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	if gauge, ok := gauges[group]; ok {
		registerer.Unregister(gauge)
		delete(gauges, group)
	}
}
