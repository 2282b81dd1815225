// Package config provides configuration management for the closure engine.
//
// Configuration can be loaded from multiple sources (in order of precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (YAML or JSON)
// 3. Default values (lowest priority)
//
// Feature flags allow enabling/disabling specific capabilities at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Closure     ClosureConfig     `json:"closure" yaml:"closure"`
	Features    FeatureFlags      `json:"features" yaml:"features"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}

// ServerConfig contains server-level configuration.
type ServerConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment" yaml:"environment"`
}

// StorageConfig selects and tunes the fact/rule store backing a run.
type StorageConfig struct {
	// Type selects the store backend: "memory", "sqlite", or "neo4j".
	Type string `json:"type" yaml:"type"`

	// SQLitePath is the database file path when Type is "sqlite".
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// SQLiteBusyTimeoutMS bounds how long a write waits on a locked database.
	SQLiteBusyTimeoutMS int `json:"sqlite_busy_timeout_ms" yaml:"sqlite_busy_timeout_ms"`

	// Neo4jURI, when Type is "neo4j", overrides the NEO4J_URI environment
	// default.
	Neo4jURI string `json:"neo4j_uri" yaml:"neo4j_uri"`

	// VectorCandidatesEnabled turns on the chromem-go associative retrieval
	// source used to seed branch hypotheses.
	VectorCandidatesEnabled bool `json:"vector_candidates_enabled" yaml:"vector_candidates_enabled"`

	// VectorPersistPath, when set, persists the vector index to disk.
	VectorPersistPath string `json:"vector_persist_path" yaml:"vector_persist_path"`
}

// ClosureConfig holds the default budget, overlap policy, and MDL weights
// applied to a verification call when the caller supplies none explicitly.
type ClosureConfig struct {
	MaxDepth    int   `json:"max_depth" yaml:"max_depth"`
	MaxSteps    int   `json:"max_steps" yaml:"max_steps"`
	MaxBranches int   `json:"max_branches" yaml:"max_branches"`
	MaxTimeMS   int64 `json:"max_time_ms" yaml:"max_time_ms"`

	// OverlapPolicy is "strict" or "widen" for temporal-overlap comparisons.
	OverlapPolicy string `json:"overlap_policy" yaml:"overlap_policy"`

	ConditionalDiscount float64 `json:"conditional_discount" yaml:"conditional_discount"`
	MinConfidence       float64 `json:"min_confidence" yaml:"min_confidence"`
	MaxClaimsPerResult  int     `json:"max_claims_per_result" yaml:"max_claims_per_result"`

	ConflictCheckInterval int `json:"conflict_check_interval" yaml:"conflict_check_interval"`

	PruneThreshold  float64 `json:"prune_threshold" yaml:"prune_threshold"`
	MinKeptBranches int     `json:"min_kept_branches" yaml:"min_kept_branches"`

	MDLWeightComplexity  float64 `json:"mdl_weight_complexity" yaml:"mdl_weight_complexity"`
	MDLWeightResidual    float64 `json:"mdl_weight_residual" yaml:"mdl_weight_residual"`
	MDLWeightCorrectness float64 `json:"mdl_weight_correctness" yaml:"mdl_weight_correctness"`
	MDLWeightBudget      float64 `json:"mdl_weight_budget" yaml:"mdl_weight_budget"`
}

// FeatureFlags controls which capabilities are enabled.
type FeatureFlags struct {
	BranchExploration  bool `json:"branch_exploration" yaml:"branch_exploration"`
	MDLScoring         bool `json:"mdl_scoring" yaml:"mdl_scoring"`
	ConditionalMode    bool `json:"conditional_mode" yaml:"conditional_mode"`
	VectorCandidates   bool `json:"vector_candidates" yaml:"vector_candidates"`
	PeriodicConsistency bool `json:"periodic_consistency" yaml:"periodic_consistency"`
	MetricsEnabled     bool `json:"metrics_enabled" yaml:"metrics_enabled"`
}

// PerformanceConfig contains performance tuning options.
type PerformanceConfig struct {
	MaxConcurrentVerifications int `json:"max_concurrent_verifications" yaml:"max_concurrent_verifications"`
	CacheSize                  int `json:"cache_size" yaml:"cache_size"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level" yaml:"level"`
	Format           string `json:"format" yaml:"format"`
	EnableTimestamps bool   `json:"enable_timestamps" yaml:"enable_timestamps"`
}

// Default returns the default configuration: every feature flag is on except
// VectorCandidates, which is opt-in.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "closured",
			Version:     "1.0.0",
			Environment: "development",
		},
		Storage: StorageConfig{
			Type:                "memory",
			SQLiteBusyTimeoutMS: 5000,
		},
		Closure: ClosureConfig{
			MaxDepth:              50,
			MaxSteps:              10000,
			MaxBranches:           64,
			MaxTimeMS:             5000,
			OverlapPolicy:         "strict",
			ConditionalDiscount:   0.7,
			MinConfidence:         0.2,
			MaxClaimsPerResult:    100,
			ConflictCheckInterval: 10,
			PruneThreshold:        0.3,
			MinKeptBranches:       2,
			MDLWeightComplexity:   1.0,
			MDLWeightResidual:     1.0,
			MDLWeightCorrectness:  2.0,
			MDLWeightBudget:       0.5,
		},
		Features: FeatureFlags{
			BranchExploration:   true,
			MDLScoring:          true,
			ConditionalMode:     true,
			VectorCandidates:    false,
			PeriodicConsistency: true,
			MetricsEnabled:      true,
		},
		Performance: PerformanceConfig{
			MaxConcurrentVerifications: 10,
			CacheSize:                  1000,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file, selected by
// extension (".yaml"/".yml" -> YAML, else JSON), then applies environment
// overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config file: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables.
// Environment variables follow the pattern: CLOSURE_<SECTION>_<KEY>.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("CLOSURE_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("CLOSURE_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv("CLOSURE_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("CLOSURE_STORAGE_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("CLOSURE_STORAGE_NEO4J_URI"); v != "" {
		c.Storage.Neo4jURI = v
	}

	if v := os.Getenv("CLOSURE_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Closure.MaxSteps = n
		}
	}
	if v := os.Getenv("CLOSURE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Closure.MaxDepth = n
		}
	}
	if v := os.Getenv("CLOSURE_MAX_BRANCHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Closure.MaxBranches = n
		}
	}
	if v := os.Getenv("CLOSURE_MAX_TIME_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Closure.MaxTimeMS = n
		}
	}
	if v := os.Getenv("CLOSURE_OVERLAP_POLICY"); v != "" {
		c.Closure.OverlapPolicy = strings.ToLower(v)
	}

	if v := os.Getenv("CLOSURE_FEATURES_VECTOR_CANDIDATES"); v != "" {
		c.Features.VectorCandidates = parseBool(v)
		c.Storage.VectorCandidatesEnabled = c.Features.VectorCandidates
	}
	if v := os.Getenv("CLOSURE_FEATURES_MDL_SCORING"); v != "" {
		c.Features.MDLScoring = parseBool(v)
	}

	if v := os.Getenv("CLOSURE_PERFORMANCE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Performance.CacheSize = n
		}
	}

	if v := os.Getenv("CLOSURE_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CLOSURE_LOGGING_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Server.Environment != "development" && c.Server.Environment != "staging" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be one of: development, staging, production")
	}

	switch c.Storage.Type {
	case "memory", "sqlite", "neo4j":
	default:
		return fmt.Errorf("storage.type must be one of: memory, sqlite, neo4j")
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required when storage.type is sqlite")
	}

	if c.Closure.MaxSteps < 0 || c.Closure.MaxDepth < 0 || c.Closure.MaxBranches < 0 {
		return fmt.Errorf("closure budget limits cannot be negative")
	}
	if c.Closure.OverlapPolicy != "strict" && c.Closure.OverlapPolicy != "widen" {
		return fmt.Errorf("closure.overlap_policy must be 'strict' or 'widen'")
	}
	if c.Closure.ConditionalDiscount <= 0 || c.Closure.ConditionalDiscount > 1 {
		return fmt.Errorf("closure.conditional_discount must be in (0, 1]")
	}

	if c.Performance.CacheSize < 0 {
		return fmt.Errorf("performance.cache_size cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}

	return nil
}

// IsFeatureEnabled checks if a specific feature is enabled.
func (c *Config) IsFeatureEnabled(feature string) bool {
	switch strings.ToLower(feature) {
	case "branch", "branch_exploration":
		return c.Features.BranchExploration
	case "mdl", "mdl_scoring":
		return c.Features.MDLScoring
	case "conditional", "conditional_mode":
		return c.Features.ConditionalMode
	case "vector", "vector_candidates":
		return c.Features.VectorCandidates
	case "periodic_consistency":
		return c.Features.PeriodicConsistency
	case "metrics", "metrics_enabled":
		return c.Features.MetricsEnabled
	default:
		return false
	}
}

// parseBool parses a boolean from string (handles various formats).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
