// Package config provides configuration loading and structs for the clausedraft server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Clauses   ClausesConfig   `yaml:"clauses"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ClausesConfig locates the clause corpus.
type ClausesConfig struct {
	Dir string `yaml:"dir"`
	// Watch rebuilds the index when clause files change on disk.
	Watch bool `yaml:"watch"`
}

// IndexConfig holds the persisted index location and chunking settings.
type IndexConfig struct {
	Path         string `yaml:"path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// EmbeddingConfig selects and configures the embedding model.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // onnx, gemini, hash
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// RetrievalConfig holds retrieval limits.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, then expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Clauses.Dir = expandPath(cfg.Clauses.Dir, configDir)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// LoadOrDefault loads path when it exists; a missing file yields the defaults with
// paths relative to the working directory.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = &Config{}
	ApplyEnv(cfg)
	ApplyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads the first .env file found among paths into the process environment.
// Existing variables are not overridden. Returns false when no file was loaded.
func LoadDotEnv(paths ...string) bool {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return true
		}
	}
	return false
}

// Environment variables that override file settings.
const (
	EnvClauseDir         = "CLAUSEDRAFT_CLAUSE_DIR"
	EnvIndexPath         = "CLAUSEDRAFT_INDEX_PATH"
	EnvEmbeddingProvider = "CLAUSEDRAFT_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "CLAUSEDRAFT_EMBEDDING_MODEL"
)

// ApplyEnv overrides fields from CLAUSEDRAFT_* environment variables when set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvClauseDir); v != "" {
		cfg.Clauses.Dir = v
	}
	if v := os.Getenv(EnvIndexPath); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedding.Model = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
