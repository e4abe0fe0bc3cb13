package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/config"
)

// Reranker scores candidate texts against a query. Higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// NewReranker builds the configured reranker: the remote cross-encoder when
// a base URL is set, otherwise the local term-overlap scorer.
func NewReranker(cfg config.RerankConfig) Reranker {
	if cfg.BaseURL == "" {
		return TermOverlapReranker{}
	}
	return &RemoteReranker{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout.Duration()},
	}
}

// RemoteReranker calls a cross-encoder inference service speaking the
// text-embeddings-inference rerank protocol.
type RemoteReranker struct {
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one relevance score per text, in input order.
func (r *RemoteReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank call failed: status %d: %s", resp.StatusCode, string(respBody))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	scores := make([]float64, len(texts))
	for _, res := range results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.Score
		}
	}
	return scores, nil
}

// TermOverlapReranker is the in-process fallback: the fraction of query
// terms present in the candidate text. Crude next to a cross-encoder, but
// deterministic and dependency-free.
type TermOverlapReranker struct{}

// Score returns the query-term overlap fraction per text.
func (TermOverlapReranker) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	queryTokens := tokenize(query)
	scores := make([]float64, len(texts))
	if len(queryTokens) == 0 {
		return scores, nil
	}
	for i, text := range texts {
		docTokens := make(map[string]struct{})
		for _, t := range tokenize(text) {
			docTokens[t] = struct{}{}
		}
		matched := 0
		for _, t := range queryTokens {
			if _, ok := docTokens[t]; ok {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTokens))
	}
	return scores, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}

// rerank scores, reorders and filters candidates. On scorer failure the
// original vector ranking is kept as-is. The second return marks a
// low-confidence set that fell short of the configured floor.
func (s *Service) rerank(ctx context.Context, query string, products []Product) ([]Product, bool) {
	if len(products) == 0 {
		return products, false
	}

	start := time.Now()
	topN := s.cfg.Rerank.TopN
	if topN > len(products) {
		topN = len(products)
	}
	cands := products[:topN]

	texts := make([]string, len(cands))
	for i, p := range cands {
		texts[i] = strings.Join([]string{p.Title, p.Brand, p.Category, p.Description}, " ")
	}

	scores, err := s.reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(cands) {
		s.logger.Warn("rerank failed, keeping vector order", zap.Error(err))
		return products, false
	}

	for i := range cands {
		cands[i].Score = scores[i]
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	normalizeScores(cands)

	kept := cands[:0:0]
	for _, p := range cands {
		if p.Score >= s.cfg.Rerank.MinScore {
			kept = append(kept, p)
		}
	}

	s.logger.Debug("rerank applied",
		zap.Int("candidates", len(cands)),
		zap.Int("kept", len(kept)),
		zap.Duration("took", time.Since(start)))

	return kept, len(kept) < s.cfg.Rerank.LowConfidenceFloor
}

// normalizeScores min-max scales scores into [0,1] in place. Skipped when
// all scores are equal.
func normalizeScores(products []Product) {
	if len(products) == 0 {
		return
	}
	min, max := products[0].Score, products[0].Score
	for _, p := range products[1:] {
		if p.Score < min {
			min = p.Score
		}
		if p.Score > max {
			max = p.Score
		}
	}
	if max == min {
		return
	}
	for i := range products {
		products[i].Score = (products[i].Score - min) / (max - min)
	}
}
