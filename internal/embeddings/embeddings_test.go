package embeddings

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Enabled {
		t.Error("expected Enabled to be false by default")
	}
	if cfg.Provider != "voyage" {
		t.Errorf("expected Provider 'voyage', got '%s'", cfg.Provider)
	}
	if cfg.Model != "voyage-3-lite" {
		t.Errorf("expected Model 'voyage-3-lite', got '%s'", cfg.Model)
	}
	if !cfg.CacheEmbeddings {
		t.Error("expected CacheEmbeddings to be true by default")
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("expected CacheTTL 24h, got %v", cfg.CacheTTL)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("expected BatchSize 100, got %d", cfg.BatchSize)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("expected MaxConcurrent 5, got %d", cfg.MaxConcurrent)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
	}
}

func TestConfigFromEnv(t *testing.T) {
	os.Setenv("EMBEDDINGS_ENABLED", "true")
	os.Setenv("EMBEDDINGS_PROVIDER", "test-provider")
	os.Setenv("EMBEDDINGS_MODEL", "test-model")
	os.Setenv("VOYAGE_API_KEY", "test-key")
	os.Setenv("EMBEDDINGS_CACHE_ENABLED", "false")
	os.Setenv("EMBEDDINGS_CACHE_TTL", "1h")
	os.Setenv("EMBEDDINGS_BATCH_SIZE", "50")
	os.Setenv("EMBEDDINGS_MAX_CONCURRENT", "10")
	os.Setenv("EMBEDDINGS_TIMEOUT", "60s")

	defer func() {
		os.Unsetenv("EMBEDDINGS_ENABLED")
		os.Unsetenv("EMBEDDINGS_PROVIDER")
		os.Unsetenv("EMBEDDINGS_MODEL")
		os.Unsetenv("VOYAGE_API_KEY")
		os.Unsetenv("EMBEDDINGS_CACHE_ENABLED")
		os.Unsetenv("EMBEDDINGS_CACHE_TTL")
		os.Unsetenv("EMBEDDINGS_BATCH_SIZE")
		os.Unsetenv("EMBEDDINGS_MAX_CONCURRENT")
		os.Unsetenv("EMBEDDINGS_TIMEOUT")
	}()

	cfg := ConfigFromEnv()

	if !cfg.Enabled {
		t.Error("expected Enabled to be true")
	}
	if cfg.Provider != "test-provider" {
		t.Errorf("expected Provider 'test-provider', got '%s'", cfg.Provider)
	}
	if cfg.Model != "test-model" {
		t.Errorf("expected Model 'test-model', got '%s'", cfg.Model)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("expected APIKey 'test-key', got '%s'", cfg.APIKey)
	}
	if cfg.CacheEmbeddings {
		t.Error("expected CacheEmbeddings to be false")
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("expected CacheTTL 1h, got %v", cfg.CacheTTL)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("expected BatchSize 50, got %d", cfg.BatchSize)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("expected MaxConcurrent 10, got %d", cfg.MaxConcurrent)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected Timeout 60s, got %v", cfg.Timeout)
	}
}
