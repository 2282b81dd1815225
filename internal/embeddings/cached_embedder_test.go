package embeddings

import (
	"context"
	"testing"
)

func newTestCache(t *testing.T) *LRUEmbeddingCache {
	t.Helper()
	c, err := NewLRUEmbeddingCache(DefaultLRUCacheConfig())
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	return c
}

func TestCachedEmbedderCachesByText(t *testing.T) {
	inner := NewMockEmbedder(8)
	cached := NewCachedEmbedder(inner, newTestCache(t))

	ctx := context.Background()
	first, err := cached.Embed(ctx, "tweety flies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inner.SetFailOnEmbed(true)
	second, err := cached.Embed(ctx, "tweety flies")
	if err != nil {
		t.Fatalf("expected cache hit to avoid inner embedder error, got %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical cached embedding, got lengths %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected cached embedding to match original at index %d", i)
		}
	}
}

func TestCachedEmbedderBatchMixesHitsAndMisses(t *testing.T) {
	inner := NewMockEmbedder(8)
	cached := NewCachedEmbedder(inner, newTestCache(t))

	ctx := context.Background()
	if _, err := cached.Embed(ctx, "cached"); err != nil {
		t.Fatalf("unexpected error priming cache: %v", err)
	}

	results, err := cached.EmbedBatch(ctx, []string{"cached", "fresh"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if len(r) != 8 {
			t.Fatalf("expected embedding %d to have dimension 8, got %d", i, len(r))
		}
	}
}

func TestCachedEmbedderDelegatesMetadata(t *testing.T) {
	inner := NewMockEmbedder(16)
	cached := NewCachedEmbedder(inner, newTestCache(t))

	if cached.Dimension() != 16 {
		t.Fatalf("expected Dimension 16, got %d", cached.Dimension())
	}
	if cached.Model() != inner.Model() {
		t.Fatalf("expected Model to match inner embedder")
	}
	if cached.Provider() != inner.Provider() {
		t.Fatalf("expected Provider to match inner embedder")
	}
}
