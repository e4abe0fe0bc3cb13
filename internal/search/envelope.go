package search

import (
	"encoding/json"

	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

// QueryEcho is the echoed query entry in the envelope.
type QueryEcho struct {
	HTMLTitle string `json:"htmlTitle"`
	Query     string `json:"query"`
}

// Named wraps a distinct brand or category name.
type Named struct {
	Name string `json:"name"`
}

// Product is one suggestion result.
type Product struct {
	UUID        string  `json:"uuid,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	URL         string  `json:"url"`
	Price       float64 `json:"price"`
	PriceText   string  `json:"priceText"`
	Score       float64 `json:"score,omitempty"`
}

// Totals carries result counts.
type Totals struct {
	Product int `json:"product"`
}

// SuggestionEnvelope is the response shape for suggestion and search
// queries. Rejected or unanswerable queries get a well-formed empty
// envelope, never an error.
type SuggestionEnvelope struct {
	Queries          []QueryEcho `json:"queries"`
	Catalogues       []Named     `json:"catalogues"`
	Products         []Product   `json:"products"`
	Brands           []Named     `json:"brands"`
	StaticContents   []any       `json:"staticContents"`
	Total            Totals      `json:"total"`
	SuggestionsFound bool        `json:"suggestionsFound"`
	// LowConfidence marks a partial result list that survived retrieval
	// but fell short of the rerank floor.
	LowConfidence bool `json:"lowConfidence,omitempty"`
}

// EmptyEnvelope builds the empty-but-well-formed envelope for a query.
// Slices are non-nil so JSON renders arrays, not nulls.
func EmptyEnvelope(query string) *SuggestionEnvelope {
	env := &SuggestionEnvelope{
		Queries:        []QueryEcho{},
		Catalogues:     []Named{},
		Products:       []Product{},
		Brands:         []Named{},
		StaticContents: []any{},
	}
	if query != "" {
		env.Queries = []QueryEcho{{HTMLTitle: query, Query: query}}
	}
	return env
}

func decodeEnvelope(raw string) (*SuggestionEnvelope, error) {
	var env SuggestionEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// productFromHit shapes an index hit into a response product.
func productFromHit(h vectorstore.Hit) Product {
	p := Product{
		UUID:        payloadString(h.Payload, "uuid"),
		Title:       payloadString(h.Payload, "title"),
		Description: payloadString(h.Payload, "description"),
		Brand:       payloadString(h.Payload, "brand"),
		Category:    payloadString(h.Payload, "category"),
		Image:       payloadString(h.Payload, "image"),
		URL:         payloadString(h.Payload, "url"),
		PriceText:   payloadString(h.Payload, "priceText"),
		Score:       float64(h.Score),
	}
	switch v := h.Payload["price"].(type) {
	case float64:
		p.Price = v
	case int64:
		p.Price = float64(v)
	}
	if p.PriceText == "" {
		p.PriceText = "Unavailable"
	}
	return p
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
