package embeddings

import "context"

// CachedEmbedder wraps an Embedder with an LRUEmbeddingCache, keyed by the
// exact text embedded. A cache hit skips the round trip to the inner
// embedder entirely; a miss embeds once and populates the cache.
type CachedEmbedder struct {
	inner Embedder
	cache *LRUEmbeddingCache
}

// NewCachedEmbedder wraps inner with cache. cache must not be nil.
func NewCachedEmbedder(inner Embedder, cache *LRUEmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed returns the cached embedding for text if present, otherwise embeds
// via the inner Embedder and caches the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch serves whatever texts are cached and embeds only the misses,
// preserving input order in the result.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for n, idx := range missIdx {
		out[idx] = embedded[n]
		c.cache.Set(missTexts[n], embedded[n])
	}
	return out, nil
}

// Dimension delegates to the wrapped Embedder.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Model delegates to the wrapped Embedder.
func (c *CachedEmbedder) Model() string { return c.inner.Model() }

// Provider delegates to the wrapped Embedder.
func (c *CachedEmbedder) Provider() string { return c.inner.Provider() }
