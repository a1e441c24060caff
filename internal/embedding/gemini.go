package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxGeminiBatch is the largest number of texts the API accepts in one batch request.
const maxGeminiBatch = 100

// ErrMissingAPIKey is returned when the Gemini provider is selected without an API key.
var ErrMissingAPIKey = errors.New("gemini api key not set")

// GeminiEmbedder embeds text with a hosted Gemini embedding model.
type GeminiEmbedder struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
	batchSize  int
	cache      *EmbeddingCache
	logger     *zap.Logger
}

// NewGeminiEmbedder creates a client for the named embedding model.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions, batchSize, cacheSize int, logger *zap.Logger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if batchSize <= 0 || batchSize > maxGeminiBatch {
		batchSize = maxGeminiBatch
	}
	return &GeminiEmbedder{
		client:     client,
		model:      client.EmbeddingModel(model),
		modelName:  model,
		dimensions: dimensions,
		batchSize:  batchSize,
		cache:      NewEmbeddingCache(cacheSize),
		logger:     utils.OrNop(logger),
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("gemini embed: empty response")
	}
	emb, err := e.normalize(res.Embedding.Values)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch embeds texts in requests of at most batchSize, skipping cached texts.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i, t := range texts {
		if cached, ok := e.cache.Get(t); ok {
			out[i] = cached
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		group := pending[start:end]
		b := e.model.NewBatch()
		for _, i := range group {
			b.AddContent(genai.Text(texts[i]))
		}
		res, err := e.model.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed: %w", err)
		}
		if len(res.Embeddings) != len(group) {
			return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d texts", len(res.Embeddings), len(group))
		}
		for j, i := range group {
			emb, err := e.normalize(res.Embeddings[j].Values)
			if err != nil {
				return nil, err
			}
			e.cache.Set(texts[i], emb)
			out[i] = emb
		}
		e.logger.Debug("gemini batch embedded", zap.Int("count", len(group)))
	}
	return out, nil
}

func (e *GeminiEmbedder) normalize(values []float32) ([]float32, error) {
	if e.dimensions > 0 && len(values) != e.dimensions {
		return nil, fmt.Errorf("gemini embed: expected %d dimensions, got %d", e.dimensions, len(values))
	}
	emb := make([]float32, len(values))
	copy(emb, values)
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "gemini:<model>".
func (e *GeminiEmbedder) Name() string {
	return "gemini:" + e.modelName
}

// Close releases the API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
