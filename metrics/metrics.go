package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdir_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgdir_http_request_duration_seconds",
			Help:    "Time taken to handle HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	GeoSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgdir_geo_search_duration_seconds",
			Help:    "Time taken by geo search queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"shape"},
	)

	SeedRowsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdir_seed_rows_created_total",
			Help: "Total number of rows created by seeding runs",
		},
		[]string{"entity"},
	)

	MigrationsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orgdir_migrations_applied_total",
			Help: "Total number of schema migrations applied",
		},
	)

	ActivityCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdir_activity_cache_hits_total",
			Help: "Activity subtree cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orgdir_auth_failures_total",
			Help: "Total number of rejected API key checks",
		},
	)
)
