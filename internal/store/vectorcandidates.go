package store

import (
	"context"
	"fmt"
	"log"

	chromem "github.com/philippgille/chromem-go"

	"boundedclosure/internal/closure/fact"
	"boundedclosure/internal/embeddings"
)

// VectorCandidateSource is the external associative-retrieval supplier: it
// does not hold the authoritative fact set (it is not a FactSource for the
// chainer), it answers one question — "which known facts are semantically
// close to this query" — for closure.Verify to merge into a program's seed
// facts before chaining, via the closure.CandidateRetriever interface. This
// is the engine's analogue of the teacher's knowledge-graph semantic search,
// repurposed from "similar thoughts" to "facts worth seeding the closure
// with even though the caller never submitted them literally."
type VectorCandidateSource struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// VectorCandidateConfig configures the backing chromem-go database.
type VectorCandidateConfig struct {
	PersistPath    string // empty = in-memory only
	CollectionName string
	Embedder       embeddings.Embedder

	// EmbedCache, when set, wraps Embedder so repeated Index/Candidates calls
	// over the same fact text skip the round trip to the embedding provider.
	EmbedCache *embeddings.LRUEmbeddingCache
}

// NewVectorCandidateSource opens (or creates) the chromem-go collection used
// for candidate retrieval.
func NewVectorCandidateSource(cfg VectorCandidateConfig) (*VectorCandidateSource, error) {
	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := cfg.CollectionName
	if name == "" {
		name = "closure_facts"
	}
	collection, err := getOrCreateCollection(db, name)
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	embedder := cfg.Embedder
	if cfg.EmbedCache != nil && embedder != nil {
		embedder = embeddings.NewCachedEmbedder(embedder, cfg.EmbedCache)
	}

	return &VectorCandidateSource{db: db, collection: collection, embedder: embedder}, nil
}

func getOrCreateCollection(db *chromem.DB, name string) (*chromem.Collection, error) {
	if c := db.GetCollection(name, nil); c != nil {
		return c, nil
	}
	return db.CreateCollection(name, nil, nil)
}

// Index embeds and stores a fact's canonical text for later retrieval.
func (v *VectorCandidateSource) Index(ctx context.Context, f fact.Fact) error {
	text := fact.CanonicalArgsString(f.Predicate, f.Arguments)
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed fact %s: %w", f.FactID, err)
	}
	doc := chromem.Document{
		ID:        f.InstanceKey(),
		Content:   text,
		Embedding: vec,
		Metadata:  map[string]string{"fact_id": f.FactID, "scope": f.ScopeID.String()},
	}
	if err := v.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index fact %s: %w", f.FactID, err)
	}
	return nil
}

// Candidates embeds query with the source's embedder, takes the n indexed
// facts nearest to it (fewer when fewer are indexed), and returns those that
// are present in the supplied pool (the candidate source never invents
// facts; it ranks a subset of an already-known pool).
func (v *VectorCandidateSource) Candidates(ctx context.Context, query fact.Fact, pool map[string]fact.Fact, n int) ([]fact.Fact, error) {
	text := fact.CanonicalArgsString(query.Predicate, query.Arguments)
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("closure vector candidates: embed query failed, falling back to empty: %v", err)
		return nil, nil
	}
	if count := v.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}
	results, err := v.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		log.Printf("closure vector candidates: query failed, falling back to empty: %v", err)
		return nil, nil
	}

	out := make([]fact.Fact, 0, len(results))
	for _, r := range results {
		if f, ok := pool[r.ID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}
