package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const ingestInstrumentationName = "github.com/fyrsmithlabs/catalogd/internal/ingest"

// Metrics holds all ingestion metrics.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	duration metric.Float64Histogram
	rows     metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for ingestion.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(ingestInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"catalogd.ingest.job_duration_seconds",
		metric.WithDescription("Wall-clock duration of an upload indexing job by terminal status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.rows, err = m.meter.Int64Counter(
		"catalogd.ingest.rows_total",
		metric.WithDescription("Catalog rows processed, by outcome (indexed, skipped)"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		m.logger.Warn("failed to create rows counter", zap.Error(err))
	}
}

// RecordJob records one finished job.
func (m *Metrics) RecordJob(ctx context.Context, status string, duration time.Duration, indexed, skipped int) {
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	}
	if m.rows == nil {
		return
	}
	if indexed > 0 {
		m.rows.Add(ctx, int64(indexed), metric.WithAttributes(attribute.String("outcome", "indexed")))
	}
	if skipped > 0 {
		m.rows.Add(ctx, int64(skipped), metric.WithAttributes(attribute.String("outcome", "skipped")))
	}
}
