// Package vector provides cosine-similarity vector indexes with filtered search.
package vector

import "context"

// Result is a single vector search hit.
type Result struct {
	ID    string
	Score float64 // cosine similarity of normalized vectors, higher is better
}

// Filter decides whether a stored vector is eligible for a search. A nil
// Filter admits everything. Filtering happens before truncation to k, so a
// search never returns fewer than k results just because ineligible vectors
// outscored eligible ones.
type Filter func(id string) bool

// Index defines vector storage and similarity search for one collection.
// The concrete index technology is swappable behind this interface without
// touching retrieval code.
type Index interface {
	// Upsert inserts the vector under id, or replaces it in place when id
	// already exists. Replacement keeps the original insertion position so
	// tie-breaks stay stable across re-ingestion.
	Upsert(ctx context.Context, id string, vec []float32) error
	// Search returns the top-k eligible vectors by similarity, ties broken by
	// insertion order (earlier-inserted first).
	Search(ctx context.Context, query []float32, k int, eligible Filter) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}
