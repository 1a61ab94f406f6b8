// Package metrics exposes icon pipeline counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "launchbox"

// Icon sources reported by ObserveExtraction.
const (
	SourceCustomPNG = "custom_png"
	SourceCustomICO = "custom_ico"
	SourceStore     = "store"
	SourceSystem    = "system"
	SourceNone      = "none"
)

// Reasons reported by ObserveBlocked.
const (
	ReasonUnsafePath    = "unsafe_path"
	ReasonUnsafeTarget  = "unsafe_target"
	ReasonOversize      = "oversize"
	ReasonBadExtension  = "extension"
	ReasonMissingTarget = "missing"
)

// IconMetrics groups the icon pipeline collectors. A nil *IconMetrics is
// valid and records nothing.
type IconMetrics struct {
	registry    *prometheus.Registry
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	extractions *prometheus.CounterVec
	blocked     *prometheus.CounterVec
	pruned      prometheus.Counter
	extractTime prometheus.Histogram
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *IconMetrics {
	reg := prometheus.NewRegistry()
	m := &IconMetrics{
		registry: reg,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "cache_hits_total",
			Help:      "Icon lookups answered from the in-memory cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "cache_misses_total",
			Help:      "Icon lookups that had to resolve an icon.",
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "extractions_total",
			Help:      "Resolved icons by source.",
		}, []string{"source"}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "blocked_total",
			Help:      "Paths refused by validation, by reason.",
		}, []string{"reason"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "pruned_total",
			Help:      "Cache entries removed after a rescan.",
		}),
		extractTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "icons",
			Name:      "resolve_seconds",
			Help:      "Time spent resolving an icon on a cache miss.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheHits,
		m.cacheMisses,
		m.extractions,
		m.blocked,
		m.pruned,
		m.extractTime,
	)
	return m
}

func (m *IconMetrics) ObserveCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *IconMetrics) ObserveCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// ObserveExtraction counts a resolved icon and how long resolution took.
func (m *IconMetrics) ObserveExtraction(source string, seconds float64) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(source).Inc()
	m.extractTime.Observe(seconds)
}

func (m *IconMetrics) ObserveBlocked(reason string) {
	if m != nil {
		m.blocked.WithLabelValues(reason).Inc()
	}
}

func (m *IconMetrics) ObservePruned(n int) {
	if m != nil && n > 0 {
		m.pruned.Add(float64(n))
	}
}

// Registry returns the registry the collectors live on.
func (m *IconMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *IconMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
