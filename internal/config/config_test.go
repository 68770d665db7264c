package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: gemini
  max_tokens: 512
  gemini:
    model: gemini-2.5-flash
embedding:
  provider: gemini
  model: text-embedding-004
  dimensions: 768
qdrant:
  host: qdrant.internal
  port: 6334
  collection: astro-docs
search:
  engine_id: 0123456789abcdef0
pipeline:
  chunk_preset: fine-grained
  top_k: 12
  score_threshold: 0.65
store:
  db_path: /var/lib/astrorag/chunks.db
server:
  port: 8080
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "GEMINI_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"GOOGLE_SEARCH_ENGINE_ID",
		"CHUNK_PRESET", "QUERY_TOP_K", "SCORE_THRESHOLD",
		"ASTRORAG_STORE_DB", "SERVER_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":          "gemini",
		"MODEL_MAX_TOKENS":        "512",
		"GEMINI_MODEL":            "gemini-2.5-flash",
		"EMBEDDING_PROVIDER":      "gemini",
		"EMBEDDING_MODEL":         "text-embedding-004",
		"EMBEDDING_DIMENSIONS":    "768",
		"QDRANT_HOST":             "qdrant.internal",
		"QDRANT_PORT":             "6334",
		"QDRANT_COLLECTION":       "astro-docs",
		"GOOGLE_SEARCH_ENGINE_ID": "0123456789abcdef0",
		"CHUNK_PRESET":            "fine-grained",
		"QUERY_TOP_K":             "12",
		"SCORE_THRESHOLD":         "0.65",
		"ASTRORAG_STORE_DB":       "/var/lib/astrorag/chunks.db",
		"SERVER_PORT":             "8080",
		"LOG_LEVEL":               "debug",
		"LOG_FORMAT":              "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("MODEL_PROVIDER", "gemini")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "gemini" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "gemini", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestChunkPreset(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		wantSize    int
		wantOverlap int
		wantOK      bool
	}{
		{"fine-grained", 500, 100, true},
		{"coarse", 1500, 200, true},
		{"default", 1000, 200, true},
		{"", 1000, 200, true},
		{"gigantic", 0, 0, false},
	}
	for _, tt := range tests {
		size, overlap, ok := ChunkPreset(tt.name)
		if size != tt.wantSize || overlap != tt.wantOverlap || ok != tt.wantOK {
			t.Errorf("ChunkPreset(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.name, size, overlap, ok, tt.wantSize, tt.wantOverlap, tt.wantOK)
		}
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.65, "0.65"},
		{0.72, "0.72"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
