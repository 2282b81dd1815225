package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"boundedclosure/internal/closure/fact"
)

// Neo4jConfig holds connection parameters for a graph-backed fact source.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// DefaultNeo4jConfig reads connection parameters from the environment.
func DefaultNeo4jConfig() Neo4jConfig {
	cfg := Neo4jConfig{
		URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Username: getEnv("NEO4J_USERNAME", "neo4j"),
		Password: getEnv("NEO4J_PASSWORD", "password"),
		Database: getEnv("NEO4J_DATABASE", "neo4j"),
		Timeout:  5 * time.Second,
	}
	if ms := os.Getenv("NEO4J_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.Timeout = time.Duration(v) * time.Millisecond
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Neo4jStore is a FactSource backed by a Neo4j knowledge graph: every Fact
// is a (:Fact) node keyed by instance_key, carrying its canonical JSON
// payload and its scope as a string property; no Scope nodes or edges are
// created. It
// does not implement RuleSource — rule programs are not graph-shaped in this
// engine and are supplied from a MemoryStore or SQLiteStore instead.
type Neo4jStore struct {
	driver  neo4j.DriverWithContext
	db      string
	timeout time.Duration
}

// NewNeo4jStore opens a pooled connection and verifies connectivity.
func NewNeo4jStore(cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = cfg.Timeout
			c.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{driver: driver, db: database, timeout: cfg.Timeout}, nil
}

// PutFact upserts a Fact node keyed by instance_key.
func (s *Neo4jStore) PutFact(ctx context.Context, f fact.Fact) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.db})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (n:Fact {instance_key: $key})
			SET n.fact_id = $fact_id, n.payload = $payload, n.scope = $scope, n.polarity = $polarity
		`, map[string]any{
			"key":      f.InstanceKey(),
			"fact_id":  f.FactID,
			"payload":  string(payload),
			"scope":    f.ScopeID.String(),
			"polarity": string(f.Polarity),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upsert fact node: %w", err)
	}
	return nil
}

// Facts implements FactSource by reading every Fact node back.
func (s *Neo4jStore) Facts() ([]fact.Fact, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.db, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `MATCH (n:Fact) RETURN n.payload AS payload`, nil)
		if err != nil {
			return nil, err
		}
		var out []fact.Fact
		for records.Next(ctx) {
			payload, ok := records.Record().Get("payload")
			if !ok {
				continue
			}
			var f fact.Fact
			if err := json.Unmarshal([]byte(payload.(string)), &f); err != nil {
				return nil, fmt.Errorf("unmarshal fact node: %w", err)
			}
			out = append(out, f)
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read fact nodes: %w", err)
	}
	return result.([]fact.Fact), nil
}

// Close releases the driver's connection pool.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
