package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
	"github.com/fyrsmithlabs/catalogd/internal/config"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

type fakeStore struct {
	hits        []vectorstore.Hit
	scrollHits  []vectorstore.Hit
	searchErr   error
	searchCalls int
	scrollCalls int
}

func (f *fakeStore) EnsureCollection(_ context.Context, _ string, _ uint64) error { return nil }

func (f *fakeStore) EnsurePayloadIndexes(_ context.Context, _ string, _ []vectorstore.PayloadIndex) error {
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, _ string, _ []vectorstore.Point) error { return nil }

func (f *fakeStore) Search(_ context.Context, _ string, _ []float32, _ vectorstore.SearchParams) ([]vectorstore.Hit, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeStore) Scroll(_ context.Context, _ string, _ uint32) ([]vectorstore.Hit, error) {
	f.scrollCalls++
	return f.scrollHits, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.5, 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }
func (f *fakeEmbedder) Close() error   { return nil }

type fakeScraper struct {
	image string
	err   error
	calls int
}

func (f *fakeScraper) ScrapeOGImage(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.image, nil
}

func hit(title, url, image string, score float32) vectorstore.Hit {
	return vectorstore.Hit{
		Score: score,
		Payload: map[string]any{
			"title":     title,
			"url":       url,
			"image":     image,
			"brand":     "Soundly",
			"category":  "Audio",
			"price":     float64(129.9),
			"priceText": "129.90 Kč",
		},
	}
}

func newTestService(store *fakeStore, scraper Scraper) (*Service, *cache.Memory) {
	mem := cache.NewMemory()
	svc := NewService(Deps{
		Config:   config.Default().Search,
		Cache:    mem,
		Store:    store,
		Embedder: &fakeEmbedder{},
		Scraper:  scraper,
		Logger:   zap.NewNop(),
	})
	return svc, mem
}

func TestSuggestRejectsGibberishWithoutSearch(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store, nil)

	env := svc.Suggest(context.Background(), "acme", "xk7qzw93mplt")
	assert.False(t, env.SuggestionsFound)
	assert.Empty(t, env.Products)
	assert.Equal(t, 0, store.searchCalls)
}

func TestSuggestLiveThenCached(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("Fone Bluetooth", "https://shop.com/fone", "https://cdn/fone.jpg", 0.9),
		hit("Fone Pro", "https://shop.com/fone-pro", "https://cdn/fone-pro.jpg", 0.6),
	}}
	svc, _ := newTestService(store, nil)
	ctx := context.Background()

	first := svc.Suggest(ctx, "acme", "fone")
	require.True(t, first.SuggestionsFound)
	assert.Len(t, first.Products, 2)
	assert.Equal(t, 2, first.Total.Product)
	assert.Equal(t, []Named{{Name: "Soundly"}}, first.Brands)
	assert.Equal(t, []Named{{Name: "Audio"}}, first.Catalogues)
	assert.Equal(t, 1, store.searchCalls)

	second := svc.Suggest(ctx, "fone", "fone")
	assert.Equal(t, 1, store.searchCalls, "second identical query must come from cache")

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestSuggestEmptyResultNotCached(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store, nil)
	ctx := context.Background()

	env := svc.Suggest(ctx, "acme", "fone")
	assert.False(t, env.SuggestionsFound)
	assert.Equal(t, 1, store.searchCalls)

	// suggestionsFound=false is never a cache hit, so retrieval reruns.
	svc.Suggest(ctx, "acme", "fone")
	assert.Equal(t, 2, store.searchCalls)
}

func TestSuggestTypoFallbackBypassesClassifier(t *testing.T) {
	store := &fakeStore{}
	svc, mem := newTestService(store, nil)
	ctx := context.Background()

	cached := EmptyEnvelope("fone")
	cached.SuggestionsFound = true
	cached.Products = []Product{{Title: "Fone Bluetooth"}}
	raw, _ := json.Marshal(cached)
	mem.Set(ctx, cache.EnvelopeKey("fone"), string(raw), 0)
	mem.Set(ctx, cache.TypoKey("xk7qzw93mplt"), "fone", 0)

	env := svc.Suggest(ctx, "acme", "xk7qzw93mplt")
	assert.True(t, env.SuggestionsFound)
	assert.Equal(t, "Fone Bluetooth", env.Products[0].Title)
	assert.Equal(t, 0, store.searchCalls)
}

func TestSuggestTierFiltering(t *testing.T) {
	// Query of length 4 uses the <=4 tier (0.08), not the <=6 one.
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("Above", "https://shop.com/a", "https://cdn/a.jpg", 0.10),
		hit("Below", "https://shop.com/b", "https://cdn/b.jpg", 0.06),
	}}
	svc, _ := newTestService(store, nil)

	env := svc.Suggest(context.Background(), "acme", "fone")
	require.Len(t, env.Products, 1)
	assert.Equal(t, "Above", env.Products[0].Title)
}

func TestSuggestDedup(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("Fone", "https://shop.com/fone", "https://cdn/1.jpg", 0.9),
		hit("Fone", "https://shop.com/fone", "https://cdn/2.jpg", 0.8),
		hit("Fone", "https://shop.com/fone-v2", "https://cdn/3.jpg", 0.7),
	}}
	svc, _ := newTestService(store, nil)

	env := svc.Suggest(context.Background(), "acme", "fone")
	require.Len(t, env.Products, 2)
	// First occurrence wins.
	assert.Equal(t, "https://cdn/1.jpg", env.Products[0].Image)

	seen := make(map[string]struct{})
	for _, p := range env.Products {
		key := p.URL + "\x00" + p.Title
		_, dup := seen[key]
		assert.False(t, dup)
		seen[key] = struct{}{}
	}
}

func TestSuggestImageBackfill(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("No Image", "https://shop.com/a", "", 0.9),
	}}
	scraper := &fakeScraper{image: "https://cdn.shop.com/og.jpg"}
	svc, _ := newTestService(store, scraper)

	env := svc.Suggest(context.Background(), "acme", "fone")
	require.Len(t, env.Products, 1)
	assert.Equal(t, "https://cdn.shop.com/og.jpg", env.Products[0].Image)
	assert.Equal(t, 1, scraper.calls)
}

func TestSuggestImagePlaceholder(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("No Image", "https://shop.com/a", "", 0.9),
	}}
	scraper := &fakeScraper{err: errors.New("404")}
	svc, _ := newTestService(store, scraper)

	env := svc.Suggest(context.Background(), "acme", "fone")
	require.Len(t, env.Products, 1)
	assert.Equal(t, placeholderImage, env.Products[0].Image)
}

func TestSuggestSearchFailureDegrades(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("unavailable")}
	svc, _ := newTestService(store, nil)

	env := svc.Suggest(context.Background(), "acme", "fone")
	assert.False(t, env.SuggestionsFound)
	assert.Empty(t, env.Products)
}

func TestSuggestEmptyQuery(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store, nil)

	env := svc.Suggest(context.Background(), "acme", "   ")
	assert.False(t, env.SuggestionsFound)
	assert.Equal(t, 0, store.searchCalls)
}

func TestSearchRerankOrdersAndFlags(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("Caixa de Som", "https://shop.com/caixa", "https://cdn/c.jpg", 0.9),
		hit("Fone Bluetooth", "https://shop.com/fone", "https://cdn/f.jpg", 0.8),
	}}
	svc, _ := newTestService(store, nil)

	env := svc.Search(context.Background(), "acme", "fone", 0)
	require.True(t, env.SuggestionsFound)
	// The term-overlap reranker puts the title match first.
	assert.Equal(t, "Fone Bluetooth", env.Products[0].Title)
	// Two results are under the low-confidence floor of five.
	assert.True(t, env.LowConfidence)
}

func TestSearchLimitCapsProducts(t *testing.T) {
	store := &fakeStore{hits: []vectorstore.Hit{
		hit("Fone Bluetooth", "https://shop.com/fone", "https://cdn/f.jpg", 0.9),
		hit("Fone de Ouvido", "https://shop.com/fone2", "https://cdn/f2.jpg", 0.8),
	}}
	svc, _ := newTestService(store, nil)

	env := svc.Search(context.Background(), "acme", "fone", 1)
	require.Len(t, env.Products, 1)
	assert.Equal(t, 1, env.Total.Product)

	// A limit past the candidate cap behaves like no limit.
	env = svc.Search(context.Background(), "acme", "fone", 500)
	assert.Len(t, env.Products, 2)
}

func TestTopItemsFromRankings(t *testing.T) {
	store := &fakeStore{}
	svc, mem := newTestService(store, nil)

	mem.SeedZSet(cache.RankingSearches("acme"), "fone", "caixa")
	mem.SeedZSet(cache.RankingBrands("acme"), "Soundly")
	mem.SeedZSet(cache.RankingCategories("acme"), "Audio")
	clicked, _ := json.Marshal(Product{Title: "Fone Bluetooth", URL: "https://shop.com/fone"})
	mem.SeedList(cache.RankingClicks("acme"), string(clicked))

	env := svc.TopItems(context.Background(), "acme")
	assert.True(t, env.SuggestionsFound)
	assert.Equal(t, []QueryEcho{{HTMLTitle: "fone", Query: "fone"}, {HTMLTitle: "caixa", Query: "caixa"}}, env.Queries)
	require.Len(t, env.Products, 1)
	assert.Equal(t, "Unavailable", env.Products[0].PriceText)
	assert.Equal(t, []Named{{Name: "Soundly"}}, env.Brands)
	assert.Equal(t, 0, store.scrollCalls)
}

func TestTopItemsScrollFallback(t *testing.T) {
	store := &fakeStore{scrollHits: []vectorstore.Hit{
		hit("Fone Bluetooth", "https://shop.com/fone", "https://cdn/f.jpg", 0),
		hit("Caixa de Som", "https://shop.com/caixa", "https://cdn/c.jpg", 0),
	}}
	svc, _ := newTestService(store, nil)

	env := svc.TopItems(context.Background(), "acme")
	assert.True(t, env.SuggestionsFound)
	assert.Len(t, env.Products, 2)
	assert.Equal(t, 1, store.scrollCalls)
	assert.Equal(t, 2, env.Total.Product)
}
