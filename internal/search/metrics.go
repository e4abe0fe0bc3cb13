package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const searchInstrumentationName = "github.com/fyrsmithlabs/catalogd/internal/search"

// Metrics holds all query-path metrics.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	duration  metric.Float64Histogram
	cacheHits metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the query path.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(searchInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"catalogd.search.query_duration_seconds",
		metric.WithDescription("End-to-end duration of a suggestion or search request by operation and outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"catalogd.search.cache_hits_total",
		metric.WithDescription("Suggestion requests served from cache, by kind (envelope, typo)"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache hits counter", zap.Error(err))
	}

	m.rejected, err = m.meter.Int64Counter(
		"catalogd.search.rejected_queries_total",
		metric.WithDescription("Queries rejected by the validity classifier"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		m.logger.Warn("failed to create rejected counter", zap.Error(err))
	}
}

// RecordQuery records one served request.
func (m *Metrics) RecordQuery(ctx context.Context, operation string, duration time.Duration, found bool) {
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.Bool("found", found),
		))
	}
}

// RecordCacheHit records a request served from cache.
func (m *Metrics) RecordCacheHit(ctx context.Context, kind string) {
	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// RecordRejected records a query the classifier refused.
func (m *Metrics) RecordRejected(ctx context.Context) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1)
	}
}
