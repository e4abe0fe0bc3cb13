package search

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

// TopItems serves the empty-query suggestion panel: top searches, recently
// clicked products and top brands/categories from the ranking structures,
// with a plain index scroll when no ranking data exists yet.
func (s *Service) TopItems(ctx context.Context, clientID string) *SuggestionEnvelope {
	env := EmptyEnvelope("")

	for _, q := range s.cache.ZRevRange(ctx, cache.RankingSearches(clientID), 0, 5) {
		env.Queries = append(env.Queries, QueryEcho{HTMLTitle: q, Query: q})
	}

	for _, raw := range s.cache.LRange(ctx, cache.RankingClicks(clientID), 0, 5) {
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.logger.Debug("corrupt ranking entry", zap.String("client_id", clientID), zap.Error(err))
			continue
		}
		if p.PriceText == "" {
			p.PriceText = "Unavailable"
		}
		env.Products = append(env.Products, p)
	}

	for _, b := range s.cache.ZRevRange(ctx, cache.RankingBrands(clientID), 0, 4) {
		env.Brands = append(env.Brands, Named{Name: b})
	}
	for _, c := range s.cache.ZRevRange(ctx, cache.RankingCategories(clientID), 0, 4) {
		env.Catalogues = append(env.Catalogues, Named{Name: c})
	}

	if len(env.Products) == 0 {
		s.scrollFallback(ctx, clientID, env)
	}

	env.Total.Product = len(env.Products)
	env.SuggestionsFound = len(env.Products) > 0
	return env
}

// scrollFallback fills the panel from a plain index scroll, used before any
// ranking signal has accumulated for the tenant.
func (s *Service) scrollFallback(ctx context.Context, clientID string, env *SuggestionEnvelope) {
	hits, err := s.store.Scroll(ctx, vectorstore.CollectionFor(clientID), 50)
	if err != nil {
		s.logger.Warn("top items fallback failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	seenBrand := make(map[string]struct{})
	seenCategory := make(map[string]struct{})
	for _, h := range hits {
		p := productFromHit(h)
		p.Score = 0
		if len(env.Products) < 7 {
			env.Products = append(env.Products, p)
		}
		if p.Brand != "" && len(env.Brands) < 5 {
			if _, ok := seenBrand[p.Brand]; !ok {
				seenBrand[p.Brand] = struct{}{}
				env.Brands = append(env.Brands, Named{Name: p.Brand})
			}
		}
		if p.Category != "" && len(env.Catalogues) < 5 {
			if _, ok := seenCategory[p.Category]; !ok {
				seenCategory[p.Category] = struct{}{}
				env.Catalogues = append(env.Catalogues, Named{Name: p.Category})
			}
		}
	}
}
