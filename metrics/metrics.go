// Package metrics holds the Prometheus collectors of the entity index.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "entityindex"

var (
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Total number of entity documents written to the index",
		},
		[]string{"type"},
	)

	DocumentsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_deleted_total",
			Help:      "Total number of entity documents removed from the index",
		},
		[]string{"type"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"status"}, // "ok" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, including hit resolution",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	StaleHitsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_hits_dropped_total",
			Help:      "Hits dropped because the entity is gone or no longer searchable",
		},
		[]string{"type"},
	)

	SearchableIDLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searchable_id_lookups_total",
			Help:      "Searchable id set lookups by source",
		},
		[]string{"type", "source"}, // "cache" / "provider" / "primary_keys"
	)

	RebuildDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_documents_total",
			Help:      "Documents written by full rebuilds",
		},
		[]string{"type"},
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Full rebuild duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		DocumentsIndexedTotal,
		DocumentsDeletedTotal,
		SearchRequestsTotal,
		SearchDuration,
		StaleHitsDroppedTotal,
		SearchableIDLookupsTotal,
		RebuildDocumentsTotal,
		RebuildDuration,
		httpRequestDuration,
		httpRequestsTotal,
	}
}

var registerOnce sync.Once

// Register registers the collectors with r. Only the first call has an
// effect, so callers sharing a process do not panic on double registration.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(Collectors()...)
	})
}
