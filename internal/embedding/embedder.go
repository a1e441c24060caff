// Package embedding turns clause text and queries into unit-length vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every vector it returns has Dimensions()
// entries and unit L2 norm, so inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the model; a persisted index is only reused by an embedder with the same name.
	Name() string
	Close() error
}
