// Package main provides the entry point for the closured MCP server.
//
// It is designed to be spawned as a child process by an MCP client and
// communicates via stdio using the Model Context Protocol. It exposes the
// bounded-closure reasoning engine as four tools: assert-fact, add-rule,
// verify, and stats.
//
// Environment variables:
//   - DEBUG: set to "true" to enable debug logging
//   - CLOSURE_CONFIG_PATH: path to a JSON or YAML config file
//   - CLOSURE_* : see internal/config for the full set of overrides
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"boundedclosure/internal/config"
	"boundedclosure/internal/embeddings"
	"boundedclosure/internal/server"
	"boundedclosure/internal/store"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting closured in debug mode...")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Loaded configuration: storage=%s, max_steps=%d, max_branches=%d", cfg.Storage.Type, cfg.Closure.MaxSteps, cfg.Closure.MaxBranches)

	srv := server.NewClosureServer(cfg)

	if seed, closeSeed, err := seedSource(cfg); err != nil {
		log.Printf("Warning: failed to open seed store (%s): %v; starting with an empty store", cfg.Storage.Type, err)
	} else if seed != nil {
		defer closeSeed()
		if err := srv.SeedFrom(seed); err != nil {
			log.Printf("Warning: failed to seed from %s store: %v", cfg.Storage.Type, err)
		} else {
			log.Printf("Seeded live store from %s backend", cfg.Storage.Type)
		}
	}

	if cfg.Storage.VectorCandidatesEnabled {
		embedCfg := embeddings.ConfigFromEnv()
		embedCache, err := embeddings.NewLRUEmbeddingCache(embeddings.DefaultLRUCacheConfig())
		if err != nil {
			log.Printf("Warning: failed to open embedding cache: %v; continuing without one", err)
		}
		vcCfg := store.VectorCandidateConfig{
			PersistPath: cfg.Storage.VectorPersistPath,
			Embedder:    buildEmbedder(embedCfg),
		}
		if embedCfg.CacheEmbeddings && embedCache != nil {
			vcCfg.EmbedCache = embedCache
		}
		vc, err := store.NewVectorCandidateSource(vcCfg)
		if err != nil {
			log.Printf("Warning: failed to open vector candidate source: %v; associative retrieval disabled", err)
		} else {
			srv.EnableVectorCandidates(vc)
			log.Println("Enabled associative-retrieval candidate source")
			if err := srv.IndexExistingFacts(context.Background()); err != nil {
				log.Printf("Warning: failed to index seeded facts for retrieval: %v", err)
			}
		}
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	log.Println("Created MCP server")

	srv.RegisterTools(mcpServer)
	log.Println("Registered tools: assert-fact, add-rule, verify, stats")

	transport := &mcp.StdioTransport{}
	log.Println("Created stdio transport")

	ctx := context.Background()
	log.Println("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CLOSURE_CONFIG_PATH"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// buildEmbedder picks a real Voyage AI client when cfg names a voyage
// provider and an API key is configured, falling back to a deterministic
// mock so associative retrieval still works (with lower-quality candidates)
// when EMBEDDINGS_ENABLED is unset or no API key is available.
func buildEmbedder(cfg *embeddings.Config) embeddings.Embedder {
	if cfg.Enabled && cfg.Provider == "voyage" && cfg.APIKey != "" {
		return embeddings.NewVoyageEmbedder(cfg.APIKey, cfg.Model)
	}
	return embeddings.NewMockEmbedder(512)
}

// seedSource opens the configured persistent backend read-only, for the
// in-process store to seed itself from at startup. The memory backend needs
// no seed. Returns a nil source and nil closer when there's nothing to open.
func seedSource(cfg *config.Config) (store.FactSource, func(), error) {
	switch cfg.Storage.Type {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath, cfg.Storage.SQLiteBusyTimeoutMS)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Printf("Warning: failed to close sqlite store: %v", err)
			}
		}, nil
	case "neo4j":
		neoCfg := store.DefaultNeo4jConfig()
		if cfg.Storage.Neo4jURI != "" {
			neoCfg.URI = cfg.Storage.Neo4jURI
		}
		s, err := store.NewNeo4jStore(neoCfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(context.Background()); err != nil {
				log.Printf("Warning: failed to close neo4j store: %v", err)
			}
		}, nil
	default:
		return nil, nil, nil
	}
}
