package embeddings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Fallback chains two providers. The primary serves every request; on any
// primary failure the request is retried once on the secondary. Both
// providers must produce vectors of the same dimension, otherwise points
// written through the fallback would not fit the collection.
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
	metrics   *Metrics
}

// NewFallback creates a fallback provider chain.
func NewFallback(primary, secondary Provider, logger *zap.Logger) *Fallback {
	if p, s := primary.Dimension(), secondary.Dimension(); p != s && s != 0 {
		logger.Warn("embedding providers disagree on dimension, fallback results may be rejected",
			zap.Int("primary", p), zap.Int("secondary", s))
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		metrics:   NewMetrics(logger),
	}
}

// EmbedQuery embeds a query via the primary, retrying on the secondary.
func (f *Fallback) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.primary.EmbedQuery(ctx, text)
	if err == nil {
		return vec, nil
	}
	f.logger.Warn("primary embedding provider failed, using fallback", zap.Error(err))
	f.metrics.RecordFallback(ctx, "embed_query")

	vec, ferr := f.secondary.EmbedQuery(ctx, text)
	if ferr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, ferr)
	}
	return vec, nil
}

// EmbedDocuments embeds documents via the primary, retrying on the secondary.
func (f *Fallback) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := f.primary.EmbedDocuments(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	f.logger.Warn("primary embedding provider failed, using fallback", zap.Error(err))
	f.metrics.RecordFallback(ctx, "embed_documents")

	vecs, ferr := f.secondary.EmbedDocuments(ctx, texts)
	if ferr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, ferr)
	}
	return vecs, nil
}

// Dimension returns the primary provider's dimension.
func (f *Fallback) Dimension() int {
	return f.primary.Dimension()
}

// Close closes both providers, returning the first error.
func (f *Fallback) Close() error {
	err := f.primary.Close()
	if serr := f.secondary.Close(); err == nil {
		err = serr
	}
	return err
}

var _ Provider = (*Fallback)(nil)
