// Package embeddings provides embedding generation via a remote service with
// a local ONNX fallback.
package embeddings

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/config"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedQuery generates an embedding for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments generates embeddings for multiple document texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// detectDimension returns the embedding dimension for a model name.
// Falls back to 384, the dimension of the small sentence-transformer family.
func detectDimension(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	default:
		return 384
	}
}

// NewProvider builds the provider stack from config. With a remote base URL
// configured the remote service is primary and the local model is the
// fallback; without one the local model serves alone.
func NewProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if cfg.BaseURL == "" {
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	}

	remote, err := NewRemote(RemoteConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout.Duration(),
	}, logger)
	if err != nil {
		return nil, err
	}

	local, err := NewFastEmbedProvider(FastEmbedConfig{
		Model:    cfg.Model,
		CacheDir: cfg.CacheDir,
	})
	if err != nil {
		logger.Warn("local embedding model unavailable, remote only", zap.Error(err))
		return remote, nil
	}

	return NewFallback(remote, local, logger), nil
}
