// Package vectorstore provides the vector index contract and its Qdrant
// implementation.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the store could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrCollectionNotFound indicates an operation on a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
)

// IndexKind is the payload index type for a field.
type IndexKind int

const (
	IndexKeyword IndexKind = iota
	IndexFloat
	IndexText
	IndexUUID
)

// PayloadIndex describes a secondary index on a payload field.
type PayloadIndex struct {
	Field string
	Kind  IndexKind
}

// Point is one unit written to the index: an id, an embedding vector and the
// denormalized payload stored alongside it.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is one scored search result.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// SearchParams tunes a similarity query.
type SearchParams struct {
	Limit uint64
	// ScoreFloor is the absolute minimum score applied at the index level.
	ScoreFloor float32
	HnswEf     uint64
}

// Store is the vector index service contract consumed by ingestion and
// search. One collection per tenant.
type Store interface {
	// EnsureCollection creates the collection if absent. Idempotent.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error

	// EnsurePayloadIndexes creates secondary payload indexes. Individual
	// index failures are logged and skipped, never fatal.
	EnsurePayloadIndexes(ctx context.Context, name string, indexes []PayloadIndex) error

	// Upsert writes points into the collection, replacing same-id points.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search runs a nearest-neighbor query for the given vector.
	Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]Hit, error)

	// Scroll returns up to limit points without a ranking signal, used as
	// a top-items fallback.
	Scroll(ctx context.Context, collection string, limit uint32) ([]Hit, error)

	Close() error
}

// ProductIndexes is the payload index set for product collections: keyword
// fields used for filtering, the float price, and the word-tokenized free
// text fields.
var ProductIndexes = []PayloadIndex{
	{Field: "client_id", Kind: IndexKeyword},
	{Field: "title", Kind: IndexKeyword},
	{Field: "brand", Kind: IndexKeyword},
	{Field: "category", Kind: IndexKeyword},
	{Field: "price", Kind: IndexFloat},
	{Field: "uuid", Kind: IndexUUID},
	{Field: "description", Kind: IndexText},
	{Field: "uses", Kind: IndexText},
	{Field: "side_effects", Kind: IndexText},
	{Field: "composition", Kind: IndexText},
}
