// Package telemetry exports cache and warehouse metrics to Prometheus.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartcity/vnweather/internal/domain"
)

// Cache lookup results
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Recorder implements service.CacheRecorder and warehouse.QueryObserver on
// its own registry.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	warehouseQueries *prometheus.CounterVec
	warehouseLatency *prometheus.HistogramVec
}

// NewRecorder creates a recorder with Go runtime and process collectors
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnweather_cache_lookups_total",
			Help: "Result cache lookups by query and result.",
		}, []string{"query", "result"}),
		warehouseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnweather_warehouse_queries_total",
			Help: "Warehouse queries by query and outcome.",
		}, []string{"query", "outcome"}),
		warehouseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vnweather_warehouse_query_duration_seconds",
			Help:    "Duration of warehouse queries, connection setup included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"query"}),
	}

	registry.MustRegister(r.cacheLookups)
	registry.MustRegister(r.warehouseQueries)
	registry.MustRegister(r.warehouseLatency)
	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RecordCacheHit(id domain.QueryID) {
	r.cacheLookups.WithLabelValues(string(id), ResultHit).Inc()
}

func (r *Recorder) RecordCacheMiss(id domain.QueryID) {
	r.cacheLookups.WithLabelValues(string(id), ResultMiss).Inc()
}

// ObserveQuery records one warehouse call
func (r *Recorder) ObserveQuery(id domain.QueryID, outcome string, elapsed time.Duration) {
	r.warehouseQueries.WithLabelValues(string(id), outcome).Inc()
	r.warehouseLatency.WithLabelValues(string(id)).Observe(elapsed.Seconds())
}
