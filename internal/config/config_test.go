package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("embedding:\n  api_key: k\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Embedding.Provider != "gemini" {
		t.Errorf("Embedding.Provider = %q, want gemini", cfg.Embedding.Provider)
	}
	if cfg.Generation.Provider != "gemini" {
		t.Errorf("Generation.Provider = %q, want gemini", cfg.Generation.Provider)
	}
	if cfg.Generation.APIKey != "k" {
		t.Errorf("Generation.APIKey = %q, want inherited key", cfg.Generation.APIKey)
	}
	if cfg.Search.DefaultTopK != 5 || cfg.Search.OverfetchFactor != 2 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Chat.HistoryWindow != 10 || cfg.Chat.ContextChars != 500 {
		t.Errorf("chat defaults = %+v", cfg.Chat)
	}
	if !strings.HasSuffix(cfg.Index.Dir, filepath.Join(".lexrag", "data", "vectorstore")) {
		t.Errorf("Index.Dir = %q", cfg.Index.Dir)
	}
	if cfg.Embedding.Concurrency != 2 {
		t.Errorf("Embedding.Concurrency = %d, want 2", cfg.Embedding.Concurrency)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("tracing defaults = %+v", cfg.Tracing)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("LEXRAG_TEST_KEY", "secret")

	cfg, err := Parse([]byte("embedding:\n  provider: openai\n  api_key: ${LEXRAG_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Embedding.APIKey != "secret" {
		t.Errorf("Embedding.APIKey = %q, want secret", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("Embedding.Model = %q", cfg.Embedding.Model)
	}
	if cfg.Generation.Model != "gpt-4o-mini" {
		t.Errorf("Generation.Model = %q", cfg.Generation.Model)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing api key", "embedding:\n  provider: gemini\n"},
		{"unknown provider", "embedding:\n  provider: local\n  api_key: k\n"},
		{"unknown generation provider", "embedding:\n  api_key: k\ngeneration:\n  provider: x\n  api_key: k\n"},
		{"batch too large", "embedding:\n  api_key: k\n  batch_size: 500\n"},
		{"top k above max", "embedding:\n  api_key: k\nsearch:\n  default_top_k: 30\n  max_top_k: 20\n"},
		{"negative overfetch", "embedding:\n  api_key: k\nsearch:\n  overfetch_factor: -1\n"},
		{"too much concurrency", "embedding:\n  api_key: k\n  concurrency: 64\n"},
		{"sample rate above one", "embedding:\n  api_key: k\ntracing:\n  sample_rate: 1.5\n"},
		{"bad yaml", "embedding: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse() expected error")
			}
		})
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsConfigNotFound(err) {
		t.Fatalf("expected ConfigNotFoundError, got %v", err)
	}
}

func TestWriteDefaultTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "lexrag.yaml")

	created, err := WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("WriteDefaultTemplate() error = %v", err)
	}
	if !created {
		t.Fatalf("expected template to be created")
	}

	created, err = WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("second WriteDefaultTemplate() error = %v", err)
	}
	if created {
		t.Errorf("expected existing template to be kept")
	}

	t.Setenv("GOOGLE_API_KEY", "from-env")
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile(template) error = %v", err)
	}
	if cfg.Generation.APIKey != "from-env" {
		t.Errorf("Generation.APIKey = %q", cfg.Generation.APIKey)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("template missing: %v", err)
	}
}
