package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "")
	t.Setenv("MIN_SCORE", "")
	t.Setenv("CHUNK_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.35 {
		t.Fatalf("expected default min score 0.35, got %f", cfg.MinScore)
	}
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected default chunk size 900, got %d", cfg.ChunkSize)
	}
	if cfg.NATSTopic != "corpus.updated" {
		t.Fatalf("expected default nats topic, got %q", cfg.NATSTopic)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "8")
	t.Setenv("MIN_SCORE", "0.5")
	t.Setenv("OLLAMA_EMBED_MODEL", "mxbai-embed-large")
	t.Setenv("LOCATE_CONCURRENCY", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 8 {
		t.Fatalf("expected top k override, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.5 {
		t.Fatalf("expected min score override, got %f", cfg.MinScore)
	}
	if cfg.OllamaEmbedModel != "mxbai-embed-large" {
		t.Fatalf("expected embed model override, got %q", cfg.OllamaEmbedModel)
	}
	if cfg.LocateConcurrency != 2 {
		t.Fatalf("expected concurrency override, got %d", cfg.LocateConcurrency)
	}
}

func TestLoadYAMLFileUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "top_k: 7\nmin_score: 0.4\nsubjects:\n  - CNS\n  - DBMS\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TOP_K", "9")
	t.Setenv("MIN_SCORE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 9 {
		t.Fatalf("environment should win over file, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.4 {
		t.Fatalf("file should win over defaults, got %f", cfg.MinScore)
	}
	if len(cfg.Subjects) != 2 || cfg.Subjects[0] != "CNS" {
		t.Fatalf("subjects not loaded from file: %q", cfg.Subjects)
	}
}

func TestLoadBadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("top_k: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 5 {
		t.Fatalf("expected fallback to default, got %d", cfg.TopK)
	}
}
