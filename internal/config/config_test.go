package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsApplied(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, uint64(384), cfg.Qdrant.VectorSize)
	assert.Equal(t, uint64(7), cfg.Search.Limit)
	assert.Equal(t, float32(0.05), cfg.Search.ScoreFloor)
	assert.Equal(t, 5*time.Minute, cfg.Cache.EnvelopeTTL.Duration())
	assert.Equal(t, 15*time.Minute, cfg.Cache.TypoTTL.Duration())
	assert.Equal(t, 16, cfg.Ingest.BatchSize)
	assert.Equal(t, 700, cfg.Ingest.ThumbnailSize)
	assert.Equal(t, 1.5, cfg.Search.Classifier.WordEntropyFloor)
	assert.Equal(t, 30, cfg.Search.Rerank.TopN)
}

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestMinScoreForLength(t *testing.T) {
	s := Default().Search

	tests := []struct {
		name string
		len  int
		want float32
	}{
		{"single char uses short tier", 1, 0.14},
		{"two chars uses short tier", 2, 0.14},
		{"three chars uses medium tier", 3, 0.08},
		{"exactly four uses medium tier, not long", 4, 0.08},
		{"five chars uses long tier", 5, 0.13},
		{"six chars uses long tier", 6, 0.13},
		{"seven chars uses full tier", 7, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MinScoreForLength(tt.len))
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
qdrant:
  host: qdrant.internal
  vector_size: 768
search:
  score_floor: 0.1
cache:
  envelope_ttl: 2m
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, uint64(768), cfg.Qdrant.VectorSize)
	assert.Equal(t, float32(0.1), cfg.Search.ScoreFloor)
	assert.Equal(t, 2*time.Minute, cfg.Cache.EnvelopeTTL.Duration())
	// Untouched sections keep defaults.
	assert.Equal(t, uint64(7), cfg.Search.Limit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600))

	t.Setenv("SERVER_PORT", "7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")
}
