package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

// Prometheus metrics for fetch strategies.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loader_fetches_total",
		Help: "Total fetch strategy executions by strategy and status",
	}, []string{"strategy", "status"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loader_fetch_duration_seconds",
		Help:    "Fetch strategy duration in seconds by strategy",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"strategy"})

	fetchRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loader_exhaustive_rounds_total",
		Help: "Total query rounds issued by exhaustive fetches",
	})
)

// PageResult is the immutable outcome of one fetch strategy execution.
// The worker that produced it hands it to the lifecycle controller, which
// merges the items into the accumulated result.
type PageResult[T any] struct {
	// Items are the fetched items in query order, lookahead already trimmed.
	Items []T

	// PageIndex is the page this result belongs to (always 0 for exhaustive).
	PageIndex int

	// HasNextPage reports whether the source holds data beyond this page.
	HasNextPage bool

	// Exhaustive marks results produced by FetchAll.
	Exhaustive bool
}

// FetchPage loads a single bounded page from the source.
//
// With objectsPerPage > 0 it requests objectsPerPage+1 items starting at
// pageIndex*objectsPerPage. The extra item is a lookahead sentinel: receiving
// it proves a next page exists, and it is trimmed before the result is
// returned. With objectsPerPage == 0 pagination is disabled and a single
// unbounded call returns everything, with HasNextPage always false.
func FetchPage[T any](ctx context.Context, src query.Source[T], pageIndex, objectsPerPage int) (PageResult[T], error) {
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues("page").Observe(time.Since(start).Seconds())
	}()

	if pageIndex < 0 {
		return PageResult[T]{}, fmt.Errorf("negative page index %d", pageIndex)
	}

	var params query.Params
	if objectsPerPage > 0 {
		params = query.Params{
			Skip:  pageIndex * objectsPerPage,
			Limit: objectsPerPage + 1,
		}
	}

	items, err := src.Execute(ctx, params)
	if err != nil {
		fetchesTotal.WithLabelValues("page", "error").Inc()
		log.Warn().
			Err(err).
			Int("page", pageIndex).
			Int("objects_per_page", objectsPerPage).
			Msg("Page fetch failed")
		return PageResult[T]{}, fmt.Errorf("fetch page %d: %w", pageIndex, err)
	}

	result := PageResult[T]{
		Items:     items,
		PageIndex: pageIndex,
	}

	if objectsPerPage > 0 && len(items) > objectsPerPage {
		// Trim the lookahead sentinel; its presence is the has-next signal.
		result.Items = items[:objectsPerPage:objectsPerPage]
		result.HasNextPage = true
	}

	fetchesTotal.WithLabelValues("page", "success").Inc()
	log.Debug().
		Int("page", pageIndex).
		Int("items", len(result.Items)).
		Bool("has_next", result.HasNextPage).
		Dur("duration", time.Since(start)).
		Msg("Page fetch complete")

	return result, nil
}

// FetchAll loads every page of the source in one logical operation.
//
// It issues fixed-size windows of batchSize (capped at MaxBatchSize),
// advancing skip by the batch size each round and concatenating the results
// in call order, until a round returns fewer items than the batch size.
// Failure is atomic: if any round fails the whole fetch fails and no partial
// result is returned.
func FetchAll[T any](ctx context.Context, src query.Source[T], batchSize int) (PageResult[T], error) {
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues("exhaustive").Observe(time.Since(start).Seconds())
	}()

	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	var all []T
	skip := 0
	rounds := 0

	for {
		select {
		case <-ctx.Done():
			fetchesTotal.WithLabelValues("exhaustive", "cancelled").Inc()
			return PageResult[T]{}, fmt.Errorf("exhaustive fetch cancelled: %w", ctx.Err())
		default:
		}

		items, err := src.Execute(ctx, query.Params{Skip: skip, Limit: batchSize})
		if err != nil {
			fetchesTotal.WithLabelValues("exhaustive", "error").Inc()
			log.Warn().
				Err(err).
				Int("round", rounds+1).
				Int("skip", skip).
				Msg("Exhaustive fetch round failed")
			return PageResult[T]{}, fmt.Errorf("fetch all (round %d, skip %d): %w", rounds+1, skip, err)
		}

		all = append(all, items...)
		skip += batchSize
		rounds++
		fetchRoundsTotal.Inc()

		// A short round means the source is drained.
		if len(items) < batchSize {
			break
		}
	}

	fetchesTotal.WithLabelValues("exhaustive", "success").Inc()
	log.Debug().
		Int("rounds", rounds).
		Int("items", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Exhaustive fetch complete")

	return PageResult[T]{Items: all, Exhaustive: true}, nil
}
