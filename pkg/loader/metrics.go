package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for loader lifecycle operations.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loader_loads_total",
		Help: "Total completed loads by mode and status",
	}, []string{"mode", "status"})

	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loader_deliveries_total",
		Help: "Total result deliveries to consumers",
	})

	staleCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loader_stale_completions_total",
		Help: "Total completions for pages older than the current page",
	})

	discardedResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loader_discarded_results_total",
		Help: "Total results discarded because the loader was reset mid-flight",
	})

	accumulatedItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loader_accumulated_items",
		Help:    "Accumulated result size at delivery time",
		Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
)
