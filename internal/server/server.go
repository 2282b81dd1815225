// Package server exposes the closure engine over the Model Context
// Protocol: a small tool surface (assert-fact, add-rule, verify, stats)
// wired to an in-memory store, the façade's Verify/RunClosure entry points,
// and the metrics collector.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"boundedclosure/internal/closerr"
	"boundedclosure/internal/closure"
	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/fact"
	"boundedclosure/internal/closure/resolve"
	"boundedclosure/internal/config"
	"boundedclosure/internal/metrics"
	"boundedclosure/internal/store"
	"boundedclosure/pkg/cache"
)

// ClosureServer holds the engine's live state across tool calls: a mutable
// fact/rule store callers build up with assert-fact/add-rule, the
// configuration a verify call falls back to, and the metrics collector every
// verification reports into.
type ClosureServer struct {
	mu    sync.RWMutex
	store *store.MemoryStore

	cfg     *config.Config
	metrics *metrics.Collector
	chain   *metrics.ChainMetrics

	// resultCache memoizes verify calls over literal (caller-supplied)
	// programs, keyed on a hash of the program, mode, and limits. Calls
	// against the live store are never cached since the store mutates
	// between assert-fact/add-rule calls.
	resultCache *cache.LRU[string, resolve.QueryResult]

	// vc is the optional associative-retrieval candidate source. When set,
	// every asserted fact is indexed into it and every live-store verify call
	// seeds additional candidates it retrieves for each live fact.
	vc *store.VectorCandidateSource
}

// EnableVectorCandidates wires an associative-retrieval candidate source
// into the server: subsequent assert-fact calls index into it, and verify
// calls against the live store pull candidate facts from it.
func (s *ClosureServer) EnableVectorCandidates(vc *store.VectorCandidateSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vc = vc
}

// IndexExistingFacts indexes every fact already in the live store into the
// vector candidate source, for facts seeded (via SeedFrom) before
// EnableVectorCandidates was called. A no-op if no candidate source is set.
func (s *ClosureServer) IndexExistingFacts(ctx context.Context) error {
	s.mu.RLock()
	vc := s.vc
	facts := append([]fact.Fact{}, s.store.InitialFacts...)
	s.mu.RUnlock()

	if vc == nil {
		return nil
	}
	for _, f := range facts {
		if err := vc.Index(ctx, f); err != nil {
			return fmt.Errorf("index fact %s: %w", f.FactID, err)
		}
	}
	return nil
}

// NewClosureServer constructs a server backed by a fresh in-memory store.
func NewClosureServer(cfg *config.Config) *ClosureServer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &ClosureServer{
		store:   store.NewMemoryStore(nil, nil),
		cfg:     cfg,
		metrics: metrics.NewCollector(),
		chain:   metrics.NewChainMetrics(),
		resultCache: cache.New[string, resolve.QueryResult](&cache.Config{
			MaxEntries: cfg.Performance.CacheSize,
			TTL:        0,
		}),
	}
}

// programCacheKey hashes a literal program plus its mode/limits into a
// stable cache key. Facts/rules are marshaled as submitted, not
// canonicalized, so byte-identical requests hit and reordered-but-equivalent
// ones miss — acceptable for a tool-call-level memoization layer.
func programCacheKey(input VerifyRequest) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SeedFrom loads facts (and, when src also implements store.RuleSource,
// rules) from a persistent backend into the live in-memory store at
// startup. Subsequent assert-fact/add-rule calls grow the in-memory copy;
// they do not write back to src.
func (s *ClosureServer) SeedFrom(src store.FactSource) error {
	facts, err := src.Facts()
	if err != nil {
		return fmt.Errorf("read seed facts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.InitialFacts = append(s.store.InitialFacts, facts...)

	if rs, ok := src.(store.RuleSource); ok {
		rules, err := rs.Rules()
		if err != nil {
			return fmt.Errorf("read seed rules: %w", err)
		}
		s.store.ActiveRules = append(s.store.ActiveRules, rules...)
	}
	return nil
}

func toJSONContent(v interface{}) []mcp.Content {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("failed to marshal response: %v", err)}}
	}
	return []mcp.Content{&mcp.TextContent{Text: string(data)}}
}

// AssertFactRequest adds one fact to the server's live store.
type AssertFactRequest struct {
	Fact FactInput `json:"fact"`
}

// AssertFactResponse echoes the stored fact's identity.
type AssertFactResponse struct {
	FactID      string `json:"fact_id"`
	InstanceKey string `json:"instance_key"`
}

// AddRuleRequest adds one rule to the server's live store.
type AddRuleRequest struct {
	Rule RuleInput `json:"rule"`
}

// AddRuleResponse echoes the stored rule's identity.
type AddRuleResponse struct {
	RuleID        string `json:"rule_id"`
	PremiseCount  int    `json:"premise_count"`
	ConclusionLen int    `json:"conclusion_count"`
}

// VerifyRequest runs one closure call. Facts and Rules, when non-empty, are
// a literal program run in isolation; otherwise the call runs against the
// server's live store. Omitted limits fall back to the server's configured
// defaults; an empty or unrecognized Mode runs as strict.
type VerifyRequest struct {
	Facts []FactInput `json:"facts,omitempty"`
	Rules []RuleInput `json:"rules,omitempty"`

	Mode string `json:"mode,omitempty"` // "strict", "conditional", "indeterminate"

	// Limit fields are pointers so an explicit 0 (e.g. max_steps: 0, which
	// means "no budget at all, exhausted on arrival") is distinguishable
	// from an omitted field falling back to the server's configured default.
	MaxDepth    *int   `json:"max_depth,omitempty"`
	MaxSteps    *int   `json:"max_steps,omitempty"`
	MaxBranches *int   `json:"max_branches,omitempty"`
	MaxTimeMS   *int64 `json:"max_time_ms,omitempty"`
}

// VerifyResponse wraps the engine's QueryResult.
type VerifyResponse struct {
	Result resolve.QueryResult `json:"result"`
}

// StatsRequest takes no parameters; it is present for symmetry with the
// other tools and room to add filters later.
type StatsRequest struct{}

// StatsResponse reports the metrics collector's windowed snapshot alongside
// the hot-path chain counters.
type StatsResponse struct {
	Metrics        []metrics.MetricValue  `json:"metrics"`
	OperationUsage map[string]int         `json:"operation_usage"`
	ChainStats     map[string]int64       `json:"chain_stats"`
	ConflictRate   float64                `json:"conflict_rate"`
	ResultCache    map[string]interface{} `json:"result_cache"`
}

func (s *ClosureServer) limits(req VerifyRequest) budget.Limits {
	l := budget.Limits{
		MaxDepth:    s.cfg.Closure.MaxDepth,
		MaxSteps:    s.cfg.Closure.MaxSteps,
		MaxBranches: s.cfg.Closure.MaxBranches,
		MaxTimeMS:   s.cfg.Closure.MaxTimeMS,
	}
	if req.MaxDepth != nil {
		l.MaxDepth = *req.MaxDepth
	}
	if req.MaxSteps != nil {
		l.MaxSteps = *req.MaxSteps
	}
	if req.MaxBranches != nil {
		l.MaxBranches = *req.MaxBranches
	}
	if req.MaxTimeMS != nil {
		l.MaxTimeMS = *req.MaxTimeMS
	}
	return l
}

func (s *ClosureServer) mode(req VerifyRequest) resolve.Mode {
	switch resolve.Mode(req.Mode) {
	case resolve.Strict, resolve.Conditional, resolve.Indeterminate:
		return resolve.Mode(req.Mode)
	default:
		return resolve.Strict
	}
}

func (s *ClosureServer) options() closure.Options {
	c := s.cfg.Closure
	opts := closure.DefaultOptions()
	opts.ConditionalDiscount = c.ConditionalDiscount
	opts.MinConfidence = c.MinConfidence
	opts.MaxClaimsPerResult = c.MaxClaimsPerResult
	opts.PruneThreshold = c.PruneThreshold
	opts.MinKeptBranches = c.MinKeptBranches
	if c.OverlapPolicy == string(fact.PolicyWiden) {
		opts.Policy = fact.PolicyWiden
	}
	return opts
}

func (s *ClosureServer) handleAssertFact(ctx context.Context, req *mcp.CallToolRequest, input AssertFactRequest) (*mcp.CallToolResult, *AssertFactResponse, error) {
	f, err := input.Fact.ToFact()
	if err != nil {
		se := closerr.New(closerr.KindInputMalformed, err.Error()).WithRecovery("check argument types: only strings, numbers, and bools are accepted")
		return &mcp.CallToolResult{Content: toJSONContent(se), IsError: true}, nil, nil
	}

	s.mu.Lock()
	s.store.InitialFacts = append(s.store.InitialFacts, f)
	vc := s.vc
	s.mu.Unlock()

	if vc != nil {
		// Indexing is best-effort: a fact that fails to index is still
		// asserted and reasoned over, just absent from future retrieval.
		if err := vc.Index(ctx, f); err != nil {
			log.Printf("handleAssertFact: failed to index fact %s for retrieval: %v", f.FactID, err)
		}
	}

	resp := &AssertFactResponse{FactID: f.FactID, InstanceKey: f.InstanceKey()}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (s *ClosureServer) handleAddRule(ctx context.Context, req *mcp.CallToolRequest, input AddRuleRequest) (*mcp.CallToolResult, *AddRuleResponse, error) {
	r, err := input.Rule.ToRule()
	if err != nil {
		se := closerr.New(closerr.KindInputMalformed, err.Error())
		return &mcp.CallToolResult{Content: toJSONContent(se), IsError: true}, nil, nil
	}

	s.mu.Lock()
	s.store.ActiveRules = append(s.store.ActiveRules, r)
	s.mu.Unlock()

	resp := &AddRuleResponse{RuleID: r.RuleID, PremiseCount: len(r.Premises), ConclusionLen: len(r.Conclusions)}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (s *ClosureServer) handleVerify(ctx context.Context, req *mcp.CallToolRequest, input VerifyRequest) (*mcp.CallToolResult, *VerifyResponse, error) {
	limits := s.limits(input)
	mode := s.mode(input)
	opts := s.options()

	literalProgram := len(input.Facts) > 0 || len(input.Rules) > 0
	var cacheKey string
	if literalProgram {
		if key, err := programCacheKey(input); err == nil {
			cacheKey = key
			if cached, ok := s.resultCache.Get(cacheKey); ok {
				resp := &VerifyResponse{Result: cached}
				return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
			}
		}
	}

	s.mu.RLock()
	knownFacts := append([]fact.Fact{}, s.store.InitialFacts...)
	vc := s.vc
	s.mu.RUnlock()

	var src store.Source
	var queryFacts []fact.Fact
	if literalProgram {
		facts := make([]fact.Fact, 0, len(input.Facts))
		for i, fi := range input.Facts {
			f, err := fi.ToFact()
			if err != nil {
				se := closerr.New(closerr.KindInputMalformed, fmt.Sprintf("fact %d: %v", i, err))
				return &mcp.CallToolResult{Content: toJSONContent(se), IsError: true}, nil, nil
			}
			facts = append(facts, f)
		}
		rules := make([]fact.Rule, 0, len(input.Rules))
		for i, ri := range input.Rules {
			r, err := ri.ToRule()
			if err != nil {
				se := closerr.New(closerr.KindInputMalformed, fmt.Sprintf("rule %d: %v", i, err))
				return &mcp.CallToolResult{Content: toJSONContent(se), IsError: true}, nil, nil
			}
			rules = append(rules, r)
		}
		src = store.NewMemoryStore(facts, rules)
		queryFacts = facts
		if len(queryFacts) == 0 {
			// A rules-only literal program has nothing of its own to query
			// retrieval with; fall back to what its rules are looking for, so
			// it can still pull matching facts out of the broader known pool.
			queryFacts = patternQueryFacts(rules)
		}
	} else {
		src = store.NewMemoryStore(knownFacts, append([]fact.Rule{}, s.store.ActiveRules...))
		queryFacts = knownFacts
	}

	// The retrieval pool is the full set of facts the server has ever been
	// told about (via assert-fact or a seed source), which may be broader
	// than this call's own queryFacts for a literal program: a small literal
	// program can still pull in associatively-related facts it never
	// explicitly submitted.
	var program *closure.Program
	if vc != nil && len(queryFacts) > 0 {
		pool := make(map[string]fact.Fact, len(knownFacts))
		for _, f := range knownFacts {
			pool[f.InstanceKey()] = f
		}
		program = &closure.Program{
			Retriever:        vc,
			RetrievalPool:    pool,
			RetrievalQueries: queryFacts,
		}
	}

	result, err := closure.Verify(ctx, program, src, limits, mode, opts)
	if err != nil {
		se := closerr.Wrap(closerr.KindInternalError, "handleVerify", "closure.Verify", err)
		return &mcp.CallToolResult{Content: toJSONContent(se), IsError: true}, nil, nil
	}

	if s.cfg.Features.MetricsEnabled {
		s.metrics.RecordVerification(result, float64(result.BudgetUsed.Steps)/float64(max1(limits.MaxSteps)))
		s.chain.RecordIteration()
		for _, c := range result.Conflicts {
			s.chain.RecordConflict(string(c.Type))
		}
		if result.Reason == "budget_exhausted" {
			s.chain.RecordBudgetExhaustion()
		}
	}

	if cacheKey != "" {
		s.resultCache.Set(cacheKey, result)
	}

	resp := &VerifyResponse{Result: result}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// patternQueryFacts builds one synthetic retrieval-query fact per rule
// premise, so a literal program that submits only rules can still surface
// associatively-related facts from the known pool. These never enter the
// closure itself — they exist only to drive embedding similarity.
func patternQueryFacts(rules []fact.Rule) []fact.Fact {
	var out []fact.Fact
	for _, r := range rules {
		for _, p := range r.Premises {
			polarity := fact.Assert
			if p.Polarity != nil {
				polarity = *p.Polarity
			}
			out = append(out, fact.New(p.Predicate, p.Arguments, polarity, fact.RootScope(), fact.UnknownTime()))
		}
	}
	return out
}

func (s *ClosureServer) handleStats(ctx context.Context, req *mcp.CallToolRequest, input StatsRequest) (*mcp.CallToolResult, *StatsResponse, error) {
	resp := &StatsResponse{
		Metrics:        s.metrics.Snapshot(),
		OperationUsage: s.metrics.OperationUsage(),
		ChainStats:     s.chain.GetStats(),
		ConflictRate:   s.chain.ConflictRate(),
		ResultCache:    s.resultCache.Stats(),
	}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// RegisterTools wires the closure engine's tool surface onto an MCP server.
func (s *ClosureServer) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "assert-fact",
		Description: "Add a fact to the engine's live fact store for subsequent verify calls.",
	}, s.handleAssertFact)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "add-rule",
		Description: "Add a forward-chaining rule to the engine's live rule store.",
	}, s.handleAddRule)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "verify",
		Description: "Run a bounded-closure verification, either over the live store or a literal facts/rules program, and return the resolved strict/conditional/indeterminate result.",
	}, s.handleVerify)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Return the engine's accumulated verification metrics and chain statistics.",
	}, s.handleStats)
}
