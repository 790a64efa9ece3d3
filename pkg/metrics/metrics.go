// Package metrics provides the centralized Prometheus metrics registry for
// the query loader. All metrics are defined in their respective packages
// (loader, pagination, source) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the loader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Loader Metrics (pkg/loader):
//   - loader_loads_total{mode, status} (Counter): Completed loads by fetch mode
//     and status (success, failure, cancelled, discarded)
//   - loader_deliveries_total (Counter): Result deliveries to consumers
//   - loader_stale_completions_total (Counter): Completions for pages older
//     than the current page (pagination state left unchanged)
//   - loader_discarded_results_total (Counter): Results discarded because the
//     loader was reset mid-flight
//   - loader_accumulated_items (Histogram): Accumulated result size at delivery
//
// Fetch Strategy Metrics (pkg/pagination):
//   - loader_fetches_total{strategy, status} (Counter): Strategy executions by
//     strategy (page, exhaustive) and status
//   - loader_fetch_duration_seconds{strategy} (Histogram): Strategy duration
//   - loader_exhaustive_rounds_total (Counter): Query rounds issued by
//     exhaustive fetches
//
// Source Metrics (pkg/source):
//   - loader_source_queries_total{backend, status} (Counter): Source query
//     executions by backend (redis) and status
//   - loader_source_query_duration_seconds{backend} (Histogram): Source query
//     duration
//
// Example Prometheus Queries:
//
//   # Load Failure Rate
//   sum(rate(loader_loads_total{status="failure"}[5m])) /
//   sum(rate(loader_loads_total[5m]))
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(loader_fetch_duration_seconds_bucket[5m]))
//
//   # Deliveries per Second
//   rate(loader_deliveries_total[5m])
//
//   # Mid-flight Discards (should be near zero outside reset storms)
//   rate(loader_discarded_results_total[5m])
