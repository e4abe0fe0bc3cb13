package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
	"github.com/fyrsmithlabs/catalogd/internal/config"
	"github.com/fyrsmithlabs/catalogd/internal/embeddings"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

// placeholderImage backs results whose image could not be resolved.
const placeholderImage = "https://via.placeholder.com/150?text=Sem+Imagem"

// Scraper resolves a fallback image from a product page.
type Scraper interface {
	ScrapeOGImage(ctx context.Context, pageURL string) (string, error)
}

// Deps carries everything the query path needs, constructed once at process
// start and passed in explicitly.
type Deps struct {
	Config      config.SearchConfig
	Cache       cache.Cache
	EnvelopeTTL time.Duration
	TypoTTL     time.Duration
	Store       vectorstore.Store
	Embedder    embeddings.Provider
	Scraper     Scraper
	Reranker    Reranker
	Logger      *zap.Logger
}

// Service serves suggestion and search queries.
type Service struct {
	cfg         config.SearchConfig
	classifier  *Classifier
	cache       cache.Cache
	envelopeTTL time.Duration
	typoTTL     time.Duration
	store       vectorstore.Store
	embedder    embeddings.Provider
	scraper     Scraper
	reranker    Reranker
	logger      *zap.Logger
	metrics     *Metrics
}

// NewService creates the query service.
func NewService(d Deps) *Service {
	if d.EnvelopeTTL == 0 {
		d.EnvelopeTTL = 5 * time.Minute
	}
	if d.TypoTTL == 0 {
		d.TypoTTL = 15 * time.Minute
	}
	if d.Reranker == nil {
		d.Reranker = NewReranker(d.Config.Rerank)
	}
	return &Service{
		cfg:         d.Config,
		classifier:  NewClassifier(d.Config.Classifier),
		cache:       d.Cache,
		envelopeTTL: d.EnvelopeTTL,
		typoTTL:     d.TypoTTL,
		store:       d.Store,
		embedder:    d.Embedder,
		scraper:     d.Scraper,
		reranker:    d.Reranker,
		logger:      d.Logger,
		metrics:     NewMetrics(d.Logger),
	}
}

// Suggest serves the autocomplete path for a query. Callers always get a
// well-formed envelope; rejected queries and upstream failures degrade to an
// empty one with suggestionsFound=false.
func (s *Service) Suggest(ctx context.Context, clientID, query string) *SuggestionEnvelope {
	start := time.Now()
	q := cache.NormalizeQuery(query)
	env := EmptyEnvelope(q)
	if q == "" {
		return env
	}

	// A query previously resolved to a canonical sibling skips both the
	// classifier and live retrieval.
	if canonical, ok := s.cache.Get(ctx, cache.TypoKey(q)); ok && canonical != q {
		if raw, ok := s.cache.Get(ctx, cache.EnvelopeKey(canonical)); ok {
			if cached, err := decodeEnvelope(raw); err == nil {
				s.logger.Debug("typo fallback hit", zap.String("query", q), zap.String("canonical", canonical))
				s.metrics.RecordCacheHit(ctx, "typo")
				return cached
			}
		}
	}

	if !s.classifier.Accept(q) {
		s.logger.Debug("query rejected as noise", zap.String("query", q))
		s.metrics.RecordRejected(ctx)
		return env
	}

	if raw, ok := s.cache.Get(ctx, cache.EnvelopeKey(q)); ok {
		if cached, err := decodeEnvelope(raw); err == nil && cached.SuggestionsFound {
			s.metrics.RecordCacheHit(ctx, "envelope")
			return cached
		}
	}

	hits, err := s.retrieve(ctx, clientID, q, s.cfg.Limit)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.String("query", q), zap.Error(err))
		return env
	}

	s.fill(ctx, env, s.dedup(hits))
	if env.SuggestionsFound {
		s.cacheEnvelope(ctx, q, env)
	}
	s.metrics.RecordQuery(ctx, "suggest", time.Since(start), env.SuggestionsFound)
	return env
}

// Search serves the full-search path: same retrieval, wider candidate set,
// plus the rerank relevance filter. limit caps the returned products; zero
// or out-of-range values fall back to the rerank candidate cap.
func (s *Service) Search(ctx context.Context, clientID, query string, limit int) *SuggestionEnvelope {
	start := time.Now()
	q := cache.NormalizeQuery(query)
	env := EmptyEnvelope(q)
	if q == "" {
		return env
	}
	if limit <= 0 || limit > s.cfg.Rerank.TopN {
		limit = s.cfg.Rerank.TopN
	}

	if !s.classifier.Accept(q) {
		s.logger.Debug("query rejected as noise", zap.String("query", q))
		s.metrics.RecordRejected(ctx)
		return env
	}

	hits, err := s.retrieve(ctx, clientID, q, uint64(s.cfg.Rerank.TopN))
	if err != nil {
		s.logger.Warn("retrieval failed", zap.String("query", q), zap.Error(err))
		return env
	}

	products, lowConfidence := s.rerank(ctx, q, s.dedup(hits))
	if len(products) > limit {
		products = products[:limit]
	}
	s.fill(ctx, env, products)
	env.LowConfidence = lowConfidence
	s.metrics.RecordQuery(ctx, "search", time.Since(start), env.SuggestionsFound)
	return env
}

// retrieve embeds the query and runs the nearest-neighbor search, applying
// the length-adaptive minimum score on top of the index-level floor.
func (s *Service) retrieve(ctx context.Context, clientID, q string, limit uint64) ([]vectorstore.Hit, error) {
	vector, err := s.embedder.EmbedQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Search(ctx, vectorstore.CollectionFor(clientID), vector, vectorstore.SearchParams{
		Limit:      limit,
		ScoreFloor: s.cfg.ScoreFloor,
		HnswEf:     s.cfg.HnswEf,
	})
	if err != nil {
		return nil, err
	}

	minScore := s.cfg.MinScoreForLength(len([]rune(q)))
	kept := hits[:0:0]
	for _, h := range hits {
		if h.Score >= minScore {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// dedup drops later hits sharing an earlier hit's (url, title) pair.
func (s *Service) dedup(hits []vectorstore.Hit) []Product {
	seen := make(map[string]struct{}, len(hits))
	products := make([]Product, 0, len(hits))
	for _, h := range hits {
		p := productFromHit(h)
		key := p.URL + "\x00" + p.Title
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		products = append(products, p)
	}
	return products
}

// fill backfills missing images and populates the envelope from the
// surviving products.
func (s *Service) fill(ctx context.Context, env *SuggestionEnvelope, products []Product) {
	s.backfillImages(ctx, products)

	seenBrand := make(map[string]struct{})
	seenCategory := make(map[string]struct{})
	for _, p := range products {
		if p.Brand != "" {
			if _, ok := seenBrand[p.Brand]; !ok {
				seenBrand[p.Brand] = struct{}{}
				env.Brands = append(env.Brands, Named{Name: p.Brand})
			}
		}
		if p.Category != "" {
			if _, ok := seenCategory[p.Category]; !ok {
				seenCategory[p.Category] = struct{}{}
				env.Catalogues = append(env.Catalogues, Named{Name: p.Category})
			}
		}
	}

	env.Products = products
	env.Total.Product = len(products)
	env.SuggestionsFound = len(products) > 0
}

// backfillImages resolves a display image for every product missing one.
// Resolutions are independent, so they run in parallel and join here.
func (s *Service) backfillImages(ctx context.Context, products []Product) {
	g, gctx := errgroup.WithContext(ctx)
	for i := range products {
		if products[i].Image != "" || products[i].URL == "" || s.scraper == nil {
			if products[i].Image == "" {
				products[i].Image = placeholderImage
			}
			continue
		}
		i := i
		g.Go(func() error {
			img, err := s.scraper.ScrapeOGImage(gctx, products[i].URL)
			if err != nil || img == "" {
				products[i].Image = placeholderImage
				return nil
			}
			products[i].Image = img
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) cacheEnvelope(ctx context.Context, q string, env *SuggestionEnvelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("marshaling envelope", zap.Error(err))
		return
	}
	s.cache.Set(ctx, cache.EnvelopeKey(q), string(raw), s.envelopeTTL)
	s.cache.Set(ctx, cache.TypoKey(q), q, s.typoTTL)
}
