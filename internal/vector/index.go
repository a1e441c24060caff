// Package vector holds the chunk embedding index searched at retrieval time.
package vector

import "context"

// Index stores chunk vectors and returns the nearest ones to a query vector.
// Implementations are safe for concurrent Search once built.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k hits ordered by descending score. Equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	Save(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// Hit is one search result: a chunk ID and its similarity to the query.
type Hit struct {
	ID    string
	Score float64
}
