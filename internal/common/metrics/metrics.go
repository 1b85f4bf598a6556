// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Duration of relational catalog queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	CatalogQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_query_errors_total",
			Help: "Total number of failed relational catalog queries",
		},
		[]string{"operation", "error_code"},
	)

	SuggestRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggest_requests_total",
			Help: "Suggest requests by the source that answered them",
		},
		[]string{"source"},
	)

	SuggestFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggest_fallbacks_total",
			Help: "Times a suggest source failed and the next one was tried",
		},
		[]string{"from"},
	)

	SuggestCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggest_cache_lookups_total",
			Help: "Suggest cache lookups by result",
		},
		[]string{"result"},
	)

	ProvisioningRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_index_provisioning_total",
			Help: "Index provisioning runs by outcome",
		},
		[]string{"outcome"},
	)

	ProvisionedDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_index_seeded_documents",
			Help: "Number of documents loaded by the last seeding run",
		},
	)
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
