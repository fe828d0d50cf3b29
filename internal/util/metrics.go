package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order writes",
	}, []string{"reason"})

	OrdersRescheduledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rescheduled_total",
		Help: "Total number of calendar reschedules",
	}, []string{"target"})

	OrdersApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_approved_total",
		Help: "Total number of orders approved into production",
	})

	ProductionStagesAdvancedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "production_stages_advanced_total",
		Help: "Total number of production stages completed",
	}, []string{"stage"})

	FragmentsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fragments_saved_total",
		Help: "Total number of fragment writes",
	}, []string{"mode"})

	FragmentLockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fragment_lock_contention_total",
		Help: "Total number of fragment writes rejected because the order lock was held",
	})

	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Total number of imported catalog rows",
	}, []string{"action"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_duration_seconds",
		Help:    "Latency of catalog import execution",
		Buckets: prometheus.DefBuckets,
	})

	CatalogCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Catalog cache lookups",
	}, []string{"result"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_published_total",
		Help: "Total number of change events published",
	}, []string{"event_type", "status"})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of connected event stream clients",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
