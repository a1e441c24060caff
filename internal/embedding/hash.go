package embedding

import (
	"context"

	"github.com/hyperjump/clausedraft/pkg/utils"
)

// HashEmbedder is a deterministic bag-of-words embedder. Each lowercase word is hashed
// into a signed bucket, so texts sharing words get a positive inner product. It needs no
// model weights and is used for tests and development.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length feature-hashed vector of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := SplitWords(text)
	if len(words) == 0 {
		emb[0] = 1
		return emb, nil
	}
	for _, w := range words {
		h := HashString(w)
		sign := float32(1)
		if (h>>16)&1 == 1 {
			sign = -1
		}
		emb[h%e.dimensions] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "hash".
func (e *HashEmbedder) Name() string {
	return "hash"
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
