// Package closure is the engine's façade: it wires fact extraction, the
// forward chainer, conflict detection, branch management, and mode
// resolution into the two entry points callers actually use — Verify (takes
// a Source) and RunClosure (takes facts/rules directly).
package closure

import (
	"context"
	"fmt"

	"boundedclosure/internal/closerr"
	"boundedclosure/internal/closure/branch"
	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/chain"
	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
	"boundedclosure/internal/closure/resolve"
	"boundedclosure/internal/store"
)

// CandidateRetriever supplies associatively-retrieved candidate facts for a
// query, restricted to a caller-supplied pool. store.VectorCandidateSource
// satisfies this structurally, so the façade never imports chromem-go or an
// embedder directly.
type CandidateRetriever interface {
	Candidates(ctx context.Context, query fact.Fact, pool map[string]fact.Fact, n int) ([]fact.Fact, error)
}

// defaultRetrievalN is how many candidates are pulled per retrieval query
// when Program.RetrievalN is left unset.
const defaultRetrievalN = 5

// Program bundles caller-supplied facts to seed a verification call
// alongside whatever a Source contributes. If Retriever is set, Verify also
// pulls associatively-retrieved candidate facts for each of RetrievalQueries
// and merges the novel ones into the seed set before chaining.
type Program struct {
	PreDerivedFacts []fact.Fact

	Retriever        CandidateRetriever
	RetrievalPool    map[string]fact.Fact
	RetrievalQueries []fact.Fact
	RetrievalN       int
}

// Options tunes one verification call beyond the raw budget limits.
type Options struct {
	Policy              fact.OverlapPolicy
	ChainOptions        chain.Options
	ConditionalDiscount float64
	MinConfidence       float64
	MaxClaimsPerResult  int
	PruneThreshold      float64
	MinKeptBranches     int
}

// DefaultOptions returns the engine's default tuning.
func DefaultOptions() Options {
	return Options{
		Policy:       fact.PolicyStrict,
		ChainOptions: chain.DefaultOptions(),
	}
}

func (o Options) resolveInput(mode resolve.Mode) func(*chain.Result, *budget.Tracker, error, string) resolve.Input {
	return func(c *chain.Result, t *budget.Tracker, err error, reason string) resolve.Input {
		return resolve.Input{
			Chain:               c,
			Tracker:             t,
			Err:                 err,
			ReasonOverride:      reason,
			ConditionalDiscount: o.ConditionalDiscount,
			MinConfidence:       o.MinConfidence,
			MaxClaimsPerResult:  o.MaxClaimsPerResult,
		}
	}
}

// Verify runs the full pipeline against a Source: extract facts/rules,
// chain, check global consistency, degrade strict mode on conflict, and
// resolve into a QueryResult. It returns a nil Go error in every case:
// failures, including a Source that cannot be read, become an indeterminate
// QueryResult with reason "execution_error".
func Verify(ctx context.Context, program *Program, src store.Source, limits budget.Limits, mode resolve.Mode, opts Options) (result resolve.QueryResult, err error) {
	tracker := budget.New(limits)
	tracker.Start()

	defer func() {
		if r := recover(); r != nil {
			se := closerr.New(closerr.KindInternalError, fmt.Sprintf("panic during verify: %v", r))
			result = resolve.Resolve(resolve.Indeterminate, opts.resolveInput(resolve.Indeterminate)(&chain.Result{}, tracker, se, "execution_error"))
		}
	}()

	initial, err := src.Facts()
	if err != nil {
		se := closerr.Wrap(closerr.KindStorageUnavailable, "Verify", "store", err).
			WithRecovery("check the configured store backend is reachable")
		return resolve.Resolve(resolve.Indeterminate, opts.resolveInput(resolve.Indeterminate)(&chain.Result{}, tracker, se, "execution_error")), nil
	}
	rules, err := src.Rules()
	if err != nil {
		se := closerr.Wrap(closerr.KindStorageUnavailable, "Verify", "store", err).
			WithRecovery("check the configured store backend is reachable")
		return resolve.Resolve(resolve.Indeterminate, opts.resolveInput(resolve.Indeterminate)(&chain.Result{}, tracker, se, "execution_error")), nil
	}
	if program != nil {
		initial = append(initial, program.PreDerivedFacts...)
		initial = append(initial, retrieveCandidates(ctx, program, initial)...)
	}

	return runClosure(initial, rules, tracker, mode, opts), nil
}

// retrieveCandidates pulls associatively-retrieved candidate facts for each
// of program's retrieval queries and returns the ones not already present in
// seeded (by instance key), so a retrieval hit never duplicates a fact the
// caller or store already contributed.
func retrieveCandidates(ctx context.Context, program *Program, seeded []fact.Fact) []fact.Fact {
	if program.Retriever == nil || len(program.RetrievalQueries) == 0 {
		return nil
	}

	n := program.RetrievalN
	if n <= 0 {
		n = defaultRetrievalN
	}

	seen := make(map[string]struct{}, len(seeded))
	for _, f := range seeded {
		seen[f.InstanceKey()] = struct{}{}
	}

	var novel []fact.Fact
	for _, q := range program.RetrievalQueries {
		candidates, err := program.Retriever.Candidates(ctx, q, program.RetrievalPool, n)
		if err != nil {
			continue
		}
		for _, c := range candidates {
			key := c.InstanceKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			novel = append(novel, c)
		}
	}
	return novel
}

// RunClosure runs the pipeline directly over an explicit fact/rule set, for
// callers that already hold their program in memory (e.g. test harnesses
// and the MCP tool layer's literal-input path).
func RunClosure(facts []fact.Fact, rules []fact.Rule, limits budget.Limits, mode resolve.Mode, opts Options) resolve.QueryResult {
	tracker := budget.New(limits)
	tracker.Start()
	return runClosure(facts, rules, tracker, mode, opts)
}

func runClosure(facts []fact.Fact, rules []fact.Rule, tracker *budget.Tracker, mode resolve.Mode, opts Options) resolve.QueryResult {
	detector := conflict.New(opts.Policy)

	bm := branch.NewManager()
	root := bm.CreateRoot()
	_ = root // the root branch anchors the tree; this façade runs a single,
	// unbranched closure — branch exploration over alternative hypotheses is
	// a caller-driven loop that creates children via bm.CreateBranch.

	chainResult := chain.Chain(facts, rules, tracker, detector, opts.ChainOptions)

	consistency := detector.CheckConsistency(chainResult.AllFacts())
	if !consistency.Consistent {
		chainResult.Conflicts = append(chainResult.Conflicts, consistency.Conflicts...)
	}

	effectiveMode := mode
	reasonOverride := ""
	if effectiveMode == resolve.Strict && len(chainResult.Conflicts) > 0 {
		effectiveMode = resolve.Indeterminate
		reasonOverride = "conflicts_detected"
	}

	in := opts.resolveInput(effectiveMode)(chainResult, tracker, nil, reasonOverride)
	result := resolve.Resolve(effectiveMode, in)
	result.ExecutionMS = tracker.ElapsedMS()
	return result
}
