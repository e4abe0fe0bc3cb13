package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/catalogd/internal/config"
)

func TestTermOverlapScore(t *testing.T) {
	r := TermOverlapReranker{}
	scores, err := r.Score(context.Background(), "fone bluetooth",
		[]string{"Fone Bluetooth Soundly", "Caixa de Som", "Fone com fio"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0.5}, scores)
}

func TestTermOverlapEmptyQuery(t *testing.T) {
	r := TermOverlapReranker{}
	scores, err := r.Score(context.Background(), "...", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, scores)
}

func TestNormalizeScores(t *testing.T) {
	products := []Product{{Score: 0.2}, {Score: 0.6}, {Score: 1.0}}
	normalizeScores(products)
	assert.InDelta(t, 0, products[0].Score, 1e-9)
	assert.InDelta(t, 0.5, products[1].Score, 1e-9)
	assert.InDelta(t, 1, products[2].Score, 1e-9)
}

func TestNormalizeScoresAllEqual(t *testing.T) {
	products := []Product{{Score: 0.4}, {Score: 0.4}}
	normalizeScores(products)
	assert.Equal(t, 0.4, products[0].Score)
	assert.Equal(t, 0.4, products[1].Score)
}

func TestRemoteReranker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fone", req.Query)
		require.Len(t, req.Texts, 2)

		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 1, Score: 0.9},
			{Index: 0, Score: 0.1},
		})
	}))
	defer srv.Close()

	r := NewReranker(config.RerankConfig{BaseURL: srv.URL})
	scores, err := r.Score(context.Background(), "fone", []string{"caixa", "fone bluetooth"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.9}, scores)
}

func TestRemoteRerankerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewReranker(config.RerankConfig{BaseURL: srv.URL})
	_, err := r.Score(context.Background(), "fone", []string{"caixa"})
	assert.Error(t, err)
}

func TestNewRerankerDefaultsToLocal(t *testing.T) {
	r := NewReranker(config.RerankConfig{})
	_, isLocal := r.(TermOverlapReranker)
	assert.True(t, isLocal)
}
