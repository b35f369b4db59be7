package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query path label values.
const (
	PathIndex       = "index"
	PathRecordStore = "database"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Registry struct {
	reg *prometheus.Registry

	SearchAvailable prometheus.Gauge
	EngineErrors    *prometheus.CounterVec // op
	Queries         *prometheus.CounterVec // path
	QueryLatencySec *prometheus.HistogramVec
	Fallbacks       prometheus.Counter

	SyncTasks      *prometheus.CounterVec // kind, result
	SyncDropped    prometheus.Counter
	SyncQueueDepth prometheus.Gauge
	ReindexIndexed prometheus.Counter
	ReindexLastSec prometheus.Gauge
	CacheLookups   *prometheus.CounterVec // result
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	available := prometheus.NewGauge(prometheus.GaugeOpts{Name: "apartment_search_index_available"})
	engineErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "apartment_search_engine_errors_total"}, []string{"op"})
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "apartment_queries_total"}, []string{"path"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apartment_query_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "apartment_search_fallbacks_total"})

	syncTasks := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "apartment_sync_tasks_total"}, []string{"kind", "result"})
	syncDropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "apartment_sync_tasks_dropped_total"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "apartment_sync_queue_depth"})
	reindexed := prometheus.NewCounter(prometheus.CounterOpts{Name: "apartment_reindex_documents_total"})
	reindexLast := prometheus.NewGauge(prometheus.GaugeOpts{Name: "apartment_reindex_last_duration_seconds"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "apartment_cache_lookups_total"}, []string{"result"})

	r.MustRegister(
		collectors.NewGoCollector(),
		available, engineErrors, queries, latency, fallbacks,
		syncTasks, syncDropped, queueDepth, reindexed, reindexLast, cacheLookups,
	)
	return &Registry{
		reg:             r,
		SearchAvailable: available,
		EngineErrors:    engineErrors,
		Queries:         queries,
		QueryLatencySec: latency,
		Fallbacks:       fallbacks,
		SyncTasks:       syncTasks,
		SyncDropped:     syncDropped,
		SyncQueueDepth:  queueDepth,
		ReindexIndexed:  reindexed,
		ReindexLastSec:  reindexLast,
		CacheLookups:    cacheLookups,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
