package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/clausedraft/internal/config"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Provider. An error means no model is available;
// the retriever then runs in offline mode.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderONNX, "":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderGemini:
		e, err := NewGeminiEmbedder(ctx, os.Getenv(cfg.APIKeyEnv), cfg.Model, cfg.Dimensions, cfg.BatchSize, cfg.CacheSize, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
