package config

// Embedding providers.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Clauses.Dir == "" {
		cfg.Clauses.Dir = "./data/legal_clauses"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./data/embeddings/legal_clauses"
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 500
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 50
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	switch cfg.Embedding.Provider {
	case ProviderGemini:
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-004"
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = 768
		}
	default:
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "all-MiniLM-L6-v2"
		}
		if cfg.Embedding.ModelPath == "" {
			cfg.Embedding.ModelPath = "./data/models/all-MiniLM-L6-v2.onnx"
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 5
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
}
