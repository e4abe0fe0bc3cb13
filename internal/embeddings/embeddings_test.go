package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider is a scriptable Provider for fallback tests.
type stubProvider struct {
	vec    []float32
	err    error
	dim    int
	calls  int
	closed bool
}

func (s *stubProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubProvider) Dimension() int { return s.dim }
func (s *stubProvider) Close() error   { s.closed = true; return nil }

func TestRemoteEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fone", req.Inputs)

		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL, Model: "test"}, zap.NewNop())
	require.NoError(t, err)

	vec, err := r.EmbedQuery(context.Background(), "fone")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestRemoteEmbedDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{1}, {2}})
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	vecs, err := r.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestRemoteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.EmbedQuery(context.Background(), "fone")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	_, err = r.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = r.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRemoteDocumentCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{1}})
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestRemoteRequiresBaseURL(t *testing.T) {
	_, err := NewRemote(RemoteConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFallbackPrefersPrimary(t *testing.T) {
	primary := &stubProvider{vec: []float32{1}, dim: 384}
	secondary := &stubProvider{vec: []float32{2}, dim: 384}
	f := NewFallback(primary, secondary, zap.NewNop())

	vec, err := f.EmbedQuery(context.Background(), "fone")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	primary := &stubProvider{err: errors.New("connection refused"), dim: 384}
	secondary := &stubProvider{vec: []float32{2}, dim: 384}
	f := NewFallback(primary, secondary, zap.NewNop())

	vec, err := f.EmbedQuery(context.Background(), "fone")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, vec)

	vecs, err := f.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestFallbackBothFail(t *testing.T) {
	primary := &stubProvider{err: errors.New("primary down"), dim: 384}
	secondary := &stubProvider{err: errors.New("secondary down"), dim: 384}
	f := NewFallback(primary, secondary, zap.NewNop())

	_, err := f.EmbedQuery(context.Background(), "fone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary down")
}

func TestFallbackClosesBoth(t *testing.T) {
	primary := &stubProvider{dim: 384}
	secondary := &stubProvider{dim: 384}
	f := NewFallback(primary, secondary, zap.NewNop())

	require.NoError(t, f.Close())
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}

func TestDetectDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"some-large-model", 1024},
		{"unknown", 384},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectDimension(tt.model), tt.model)
	}
}
