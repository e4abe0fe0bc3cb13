// Package config provides configuration loading for catalogd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates an invalid configuration value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration for the catalogd process.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Qdrant      QdrantConfig      `koanf:"qdrant"`
	Cache       CacheConfig       `koanf:"cache"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	ObjectStore ObjectStoreConfig `koanf:"objectstore"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Search      SearchConfig      `koanf:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is json or console.
	Format string `koanf:"format"`
}

// QdrantConfig holds settings for the Qdrant gRPC client.
type QdrantConfig struct {
	Host string `koanf:"host"`
	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port   int    `koanf:"port"`
	APIKey Secret `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
	// VectorSize must match the embedding provider's output dimension.
	VectorSize   uint64   `koanf:"vector_size"`
	MaxRetries   int      `koanf:"max_retries"`
	RetryBackoff Duration `koanf:"retry_backoff"`
}

// CacheConfig holds Redis settings. An empty Addr disables caching entirely;
// every cache operation degrades to a no-op.
type CacheConfig struct {
	Addr        string   `koanf:"addr"`
	Password    Secret   `koanf:"password"`
	DB          int      `koanf:"db"`
	EnvelopeTTL Duration `koanf:"envelope_ttl"`
	TypoTTL     Duration `koanf:"typo_ttl"`
	ImageTTL    Duration `koanf:"image_ttl"`
	JobTTL      Duration `koanf:"job_ttl"`
	CancelTTL   Duration `koanf:"cancel_ttl"`
}

// EmbeddingConfig holds settings for the embedding providers.
type EmbeddingConfig struct {
	// BaseURL is the remote embedding service. Empty disables the remote
	// path and uses the local model directly.
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
	// CacheDir is where the local model files are cached.
	CacheDir string `koanf:"cache_dir"`
}

// ObjectStoreConfig holds settings for the S3-compatible thumbnail store.
type ObjectStoreConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey Secret `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	// PublicBaseURL is the public URL prefix for uploaded objects.
	PublicBaseURL string `koanf:"public_base_url"`
	UseSSL        bool   `koanf:"use_ssl"`
}

// IngestConfig holds settings for the indexing orchestrator.
type IngestConfig struct {
	BatchSize    int      `koanf:"batch_size"`
	ImageTimeout Duration `koanf:"image_timeout"`
	// ThumbnailSize is the bounding box edge for resized thumbnails.
	ThumbnailSize int `koanf:"thumbnail_size"`
	JPEGQuality   int `koanf:"jpeg_quality"`
	// FetchInterval is the minimum spacing between upstream image fetches,
	// to avoid 429 responses.
	FetchInterval Duration `koanf:"fetch_interval"`
}

// SearchConfig holds the query-time tuning knobs. The score constants are
// empirically calibrated; treat them as configuration, not invariants.
type SearchConfig struct {
	// Limit is the nearest-neighbor result cap.
	Limit uint64 `koanf:"limit"`
	// HnswEf is the hnsw_ef search parameter.
	HnswEf uint64 `koanf:"hnsw_ef"`
	// ScoreFloor is the absolute floor applied at the index level.
	ScoreFloor float32 `koanf:"score_floor"`
	// Length-adaptive minimum scores by query character length.
	TierShort  float32 `koanf:"tier_short"`  // <= 2 chars
	TierMedium float32 `koanf:"tier_medium"` // <= 4 chars
	TierLong   float32 `koanf:"tier_long"`   // <= 6 chars
	TierFull   float32 `koanf:"tier_full"`   // > 6 chars

	Classifier ClassifierConfig `koanf:"classifier"`
	Rerank     RerankConfig     `koanf:"rerank"`
}

// ClassifierConfig holds the query-noise heuristics thresholds.
type ClassifierConfig struct {
	// WordEntropyFloor is the per-word Shannon entropy floor in bits.
	WordEntropyFloor float64 `koanf:"word_entropy_floor"`
	// MeanEntropyFloor is the mean per-word entropy floor for multi-word queries.
	MeanEntropyFloor float64 `koanf:"mean_entropy_floor"`
	// LongWordLen is the length past which low-entropy words count as gibberish.
	LongWordLen int `koanf:"long_word_len"`
	// SuspectWordLen is the length past which words are entropy-checked.
	SuspectWordLen int `koanf:"suspect_word_len"`
	// SuspiciousFraction is the word fraction that rejects a mixed-noise query.
	SuspiciousFraction float64 `koanf:"suspicious_fraction"`
	// SymbolNoiseLen is the query length past which noisy symbols reject.
	SymbolNoiseLen int `koanf:"symbol_noise_len"`
}

// RerankConfig holds the full-search rerank settings.
type RerankConfig struct {
	// BaseURL is the remote cross-encoder service. Empty uses the local
	// term-overlap scorer.
	BaseURL string   `koanf:"base_url"`
	Timeout Duration `koanf:"timeout"`
	// TopN caps how many candidates are rerank-scored.
	TopN int `koanf:"top_n"`
	// MinScore is the minimum acceptable normalized score.
	MinScore float64 `koanf:"min_score"`
	// LowConfidenceFloor is the result count under which the envelope is
	// flagged low-confidence.
	LowConfidenceFloor int `koanf:"low_confidence_floor"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("%w: qdrant host required", ErrInvalidConfig)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: qdrant port %d", ErrInvalidConfig, c.Qdrant.Port)
	}
	if c.Qdrant.VectorSize == 0 {
		return fmt.Errorf("%w: qdrant vector size required", ErrInvalidConfig)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("%w: ingest batch size must be positive", ErrInvalidConfig)
	}
	if c.Search.Limit == 0 {
		return fmt.Errorf("%w: search limit must be positive", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 384
	}
	if cfg.Qdrant.MaxRetries == 0 {
		cfg.Qdrant.MaxRetries = 3
	}
	if cfg.Qdrant.RetryBackoff == 0 {
		cfg.Qdrant.RetryBackoff = Duration(time.Second)
	}
	if cfg.Cache.EnvelopeTTL == 0 {
		cfg.Cache.EnvelopeTTL = Duration(5 * time.Minute)
	}
	if cfg.Cache.TypoTTL == 0 {
		cfg.Cache.TypoTTL = Duration(15 * time.Minute)
	}
	if cfg.Cache.ImageTTL == 0 {
		cfg.Cache.ImageTTL = Duration(24 * time.Hour)
	}
	if cfg.Cache.JobTTL == 0 {
		cfg.Cache.JobTTL = Duration(time.Hour)
	}
	if cfg.Cache.CancelTTL == 0 {
		cfg.Cache.CancelTTL = Duration(10 * time.Minute)
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(5 * time.Second)
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 16
	}
	if cfg.Ingest.ImageTimeout == 0 {
		cfg.Ingest.ImageTimeout = Duration(5 * time.Second)
	}
	if cfg.Ingest.ThumbnailSize == 0 {
		cfg.Ingest.ThumbnailSize = 700
	}
	if cfg.Ingest.JPEGQuality == 0 {
		cfg.Ingest.JPEGQuality = 85
	}
	if cfg.Ingest.FetchInterval == 0 {
		cfg.Ingest.FetchInterval = Duration(200 * time.Millisecond)
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 7
	}
	if cfg.Search.HnswEf == 0 {
		cfg.Search.HnswEf = 128
	}
	if cfg.Search.ScoreFloor == 0 {
		cfg.Search.ScoreFloor = 0.05
	}
	if cfg.Search.TierShort == 0 {
		cfg.Search.TierShort = 0.14
	}
	if cfg.Search.TierMedium == 0 {
		cfg.Search.TierMedium = 0.08
	}
	if cfg.Search.TierLong == 0 {
		cfg.Search.TierLong = 0.13
	}
	if cfg.Search.TierFull == 0 {
		cfg.Search.TierFull = 0.2
	}
	cl := &cfg.Search.Classifier
	if cl.WordEntropyFloor == 0 {
		cl.WordEntropyFloor = 1.5
	}
	if cl.MeanEntropyFloor == 0 {
		cl.MeanEntropyFloor = 2.0
	}
	if cl.LongWordLen == 0 {
		cl.LongWordLen = 8
	}
	if cl.SuspectWordLen == 0 {
		cl.SuspectWordLen = 5
	}
	if cl.SuspiciousFraction == 0 {
		cl.SuspiciousFraction = 0.3
	}
	if cl.SymbolNoiseLen == 0 {
		cl.SymbolNoiseLen = 30
	}
	rr := &cfg.Search.Rerank
	if rr.Timeout == 0 {
		rr.Timeout = Duration(10 * time.Second)
	}
	if rr.TopN == 0 {
		rr.TopN = 30
	}
	if rr.MinScore == 0 {
		rr.MinScore = 0.02
	}
	if rr.LowConfidenceFloor == 0 {
		rr.LowConfidenceFloor = 5
	}
}

// MinScoreForLength returns the length-adaptive minimum similarity score.
// Shorter queries are less discriminative, so the bar adapts to length.
func (s SearchConfig) MinScoreForLength(queryLen int) float32 {
	switch {
	case queryLen <= 2:
		return s.TierShort
	case queryLen <= 4:
		return s.TierMedium
	case queryLen <= 6:
		return s.TierLong
	default:
		return s.TierFull
	}
}
