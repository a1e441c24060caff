package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
clauses:
  dir: "./clauses"
embedding:
  provider: hash
  dimensions: 16
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Clauses.Dir != filepath.Join(dir, "clauses") {
		t.Errorf("clauses dir = %s", cfg.Clauses.Dir)
	}
	if cfg.Index.Path != filepath.Join(dir, "data", "embeddings", "legal_clauses") {
		t.Errorf("default index path should be relative to config dir, got %s", cfg.Index.Path)
	}
	if cfg.Embedding.Provider != ProviderHash || cfg.Embedding.Dimensions != 16 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	override := filepath.Join(dir, "elsewhere")
	t.Setenv(EnvClauseDir, override)
	t.Setenv(EnvEmbeddingProvider, "GEMINI")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Clauses.Dir != override {
		t.Errorf("clauses dir = %s, want %s", cfg.Clauses.Dir, override)
	}
	if cfg.Embedding.Provider != ProviderGemini {
		t.Errorf("provider = %s", cfg.Embedding.Provider)
	}
}

func TestLoadOrDefault_missingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clauses.Dir != "./data/legal_clauses" {
		t.Errorf("clauses dir = %s", cfg.Clauses.Dir)
	}
}

func TestLoadOrDefault_parseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Index.ChunkSize != 500 || cfg.Index.ChunkOverlap != 50 {
		t.Errorf("chunking defaults: %+v", cfg.Index)
	}
	if cfg.Embedding.Provider != ProviderONNX || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Retrieval.DefaultK != 5 {
		t.Errorf("default k: got %d", cfg.Retrieval.DefaultK)
	}
}

func TestApplyDefaults_gemini(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: ProviderGemini}}
	ApplyDefaults(cfg)
	if cfg.Embedding.Model != "text-embedding-004" || cfg.Embedding.Dimensions != 768 {
		t.Errorf("gemini defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.ModelPath != "" {
		t.Errorf("gemini should not get an onnx model path: %s", cfg.Embedding.ModelPath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CLAUSEDRAFT_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CLAUSEDRAFT_TEST_DOTENV") })
	if LoadDotEnv(filepath.Join(dir, "missing.env")) {
		t.Error("missing file should not load")
	}
	if !LoadDotEnv(filepath.Join(dir, "missing.env"), envPath) {
		t.Fatal("expected .env to load")
	}
	if got := os.Getenv("CLAUSEDRAFT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("env = %q", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Clauses: ClausesConfig{Dir: "/tmp/clauses"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || loaded.Clauses.Dir != "/tmp/clauses" {
		t.Errorf("loaded: %+v", loaded)
	}
}
