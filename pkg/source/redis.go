// Package source provides ready-made query.Source implementations:
// a Redis-list-backed source for shared data and an in-memory slice source
// for tests and examples.
package source

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

// Prometheus metrics for source query execution.
var (
	sourceQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loader_source_queries_total",
		Help: "Total source query executions by backend and status",
	}, []string{"backend", "status"})

	sourceQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loader_source_query_duration_seconds",
		Help:    "Source query duration in seconds by backend",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"backend"})
)

// RedisList is a query.Source backed by a Redis list of JSON-encoded items.
// List order is the query order, so skip/limit windows map directly onto
// LRANGE offsets.
type RedisList[T any] struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger
}

// NewRedisList creates a Redis list source reading from the given key.
func NewRedisList[T any](redisClient *redis.Client, key string) *RedisList[T] {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}

	logger := log.With().
		Str("component", "redis-source").
		Str("key", key).
		Logger()

	return &RedisList[T]{
		redis:  redisClient,
		key:    key,
		logger: logger,
	}
}

// Execute implements query.Source.
// A Limit of 0 reads from Skip to the end of the list.
func (s *RedisList[T]) Execute(ctx context.Context, params query.Params) ([]T, error) {
	start := time.Now()
	defer func() {
		sourceQueryDuration.WithLabelValues("redis").Observe(time.Since(start).Seconds())
	}()

	stop := int64(-1)
	if params.Limit > 0 {
		stop = int64(params.Skip + params.Limit - 1)
	}

	raw, err := s.redis.LRange(ctx, s.key, int64(params.Skip), stop).Result()
	if err != nil {
		sourceQueriesTotal.WithLabelValues("redis", "error").Inc()
		s.logger.Warn().
			Err(err).
			Int("skip", params.Skip).
			Int("limit", params.Limit).
			Msg("Redis range query failed")
		return nil, &query.Error{Op: "redis", Message: "lrange " + s.key, Err: err}
	}

	items := make([]T, 0, len(raw))
	for _, entry := range raw {
		var item T
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			sourceQueriesTotal.WithLabelValues("redis", "error").Inc()
			return nil, &query.Error{Op: "redis", Message: "decode list entry", Err: err}
		}
		items = append(items, item)
	}

	sourceQueriesTotal.WithLabelValues("redis", "success").Inc()
	s.logger.Debug().
		Int("skip", params.Skip).
		Int("limit", params.Limit).
		Int("items", len(items)).
		Msg("Redis range query complete")

	return items, nil
}

// Append JSON-encodes items and pushes them onto the end of the list.
// Useful for seeding data; readers see them on the next load.
func (s *RedisList[T]) Append(ctx context.Context, items ...T) error {
	if len(items) == 0 {
		return nil
	}

	encoded := make([]interface{}, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return &query.Error{Op: "redis", Message: "encode list entry", Err: err}
		}
		encoded = append(encoded, data)
	}

	if err := s.redis.RPush(ctx, s.key, encoded...).Err(); err != nil {
		return &query.Error{Op: "redis", Message: "rpush " + s.key, Err: err}
	}

	return nil
}

// Len returns the current number of items in the list.
func (s *RedisList[T]) Len(ctx context.Context) (int, error) {
	n, err := s.redis.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, &query.Error{Op: "redis", Message: "llen " + s.key, Err: err}
	}
	return int(n), nil
}
