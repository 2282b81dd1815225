// Package resolve implements the three mode handlers (strict / conditional /
// indeterminate) and the chainable QueryResult builder.
package resolve

import (
	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
)

// Mode is the epistemic status of a result: definite with no assumptions,
// definite under named assumptions, or no substantive claim.
type Mode string

const (
	Strict        Mode = "strict"
	Conditional   Mode = "conditional"
	Indeterminate Mode = "indeterminate"
)

// Claim is one derived, epistemically-qualified assertion in a result.
type Claim struct {
	FactID          string          `json:"fact_id"`
	Predicate       fact.SymbolId   `json:"predicate"`
	Arguments       map[string]fact.Term `json:"arguments"`
	Polarity        fact.Polarity   `json:"polarity"`
	Confidence      float64         `json:"confidence"`
	SupportingFacts []string        `json:"supporting_facts"`
}

// Assumption documents a condition the conditional mode relied on.
type Assumption struct {
	Description string   `json:"description"`
	FactIDs     []string `json:"fact_ids,omitempty"`
}

// ExplorationStats summarizes one chaining run for the indeterminate path's
// assumptions.
type ExplorationStats struct {
	Iterations    int `json:"iterations"`
	RulesApplied  int `json:"rules_applied"`
	DerivedCount  int `json:"derived_count"`
	ConflictCount int `json:"conflict_count"`
}

// QueryResult is the engine's final output for one verification call.
type QueryResult struct {
	Mode             Mode               `json:"mode"`
	BudgetUsed       budget.Used        `json:"budget_used"`
	Claims           []Claim            `json:"claims"`
	Assumptions      []Assumption       `json:"assumptions"`
	Conflicts        []conflict.Conflict `json:"conflicts"`
	TraceRefs        []string           `json:"trace_refs"`
	ExecutionMS      int64              `json:"execution_ms"`
	Reason           string             `json:"reason,omitempty"`
	ExplorationStats *ExplorationStats  `json:"exploration_stats,omitempty"`
}

const defaultMaxClaimsPerResult = 100

// Builder is a chainable QueryResult assembler: start, add claims/
// assumptions/conflicts/trace refs, set budget & timing, build.
type Builder struct {
	result    QueryResult
	maxClaims int
}

// NewBuilder starts a fresh result assembly with the default claim cap.
func NewBuilder() *Builder {
	return &Builder{maxClaims: defaultMaxClaimsPerResult}
}

// WithMaxClaims overrides max_claims_per_result (default 100).
func (b *Builder) WithMaxClaims(n int) *Builder {
	if n > 0 {
		b.maxClaims = n
	}
	return b
}

// AddClaim appends a claim, silently dropping it once the cap is reached.
func (b *Builder) AddClaim(c Claim) *Builder {
	if len(b.result.Claims) < b.maxClaims {
		b.result.Claims = append(b.result.Claims, c)
	}
	return b
}

// AddAssumption appends an assumption.
func (b *Builder) AddAssumption(a Assumption) *Builder {
	b.result.Assumptions = append(b.result.Assumptions, a)
	return b
}

// AddConflicts appends conflicts.
func (b *Builder) AddConflicts(cs []conflict.Conflict) *Builder {
	b.result.Conflicts = append(b.result.Conflicts, cs...)
	return b
}

// AddTraceRef appends a trace reference.
func (b *Builder) AddTraceRef(ref string) *Builder {
	b.result.TraceRefs = append(b.result.TraceRefs, ref)
	return b
}

// SetMode sets the resolved mode.
func (b *Builder) SetMode(m Mode) *Builder {
	b.result.Mode = m
	return b
}

// SetReason sets the indeterminate/conditional reason.
func (b *Builder) SetReason(reason string) *Builder {
	b.result.Reason = reason
	return b
}

// SetBudget records budget usage.
func (b *Builder) SetBudget(u budget.Used) *Builder {
	b.result.BudgetUsed = u
	return b
}

// SetExecutionMS records wall-clock time spent.
func (b *Builder) SetExecutionMS(ms int64) *Builder {
	b.result.ExecutionMS = ms
	return b
}

// SetExplorationStats attaches an exploration summary.
func (b *Builder) SetExplorationStats(s ExplorationStats) *Builder {
	b.result.ExplorationStats = &s
	return b
}

// Build finalizes the result.
func (b *Builder) Build() QueryResult {
	return b.result
}
