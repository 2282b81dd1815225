// Package chain implements the agenda-driven forward-chaining engine: a
// budget-bounded unifier/applier over rules with priority and specificity
// ordering, producing a derivation trace and conflict hook.
package chain

import (
	"sort"

	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
	"boundedclosure/internal/closure/unify"
)

// Options tunes chainer behavior beyond the budget.
type Options struct {
	// ConflictCheckInterval is how often (in iterations) a full O(n^2)
	// consistency scan runs to catch non-local contradictions. Default 10.
	ConflictCheckInterval int
}

// DefaultOptions returns the spec's default tuning.
func DefaultOptions() Options {
	return Options{ConflictCheckInterval: 10}
}

// TraceEntry records one notable event during chaining.
type TraceEntry struct {
	Iteration int
	Kind      string // "seed", "applied", "rejected_conflict", "malformed_rule", "periodic_scan"
	RuleID    string
	FactID    string
	Detail    string
}

// Result is the outcome of one Chain call.
type Result struct {
	Facts           map[string]fact.Fact // keyed by fact.Fact.InstanceKey()
	Derived         []fact.Fact
	Conflicts       []conflict.Conflict
	Trace           []TraceEntry
	BudgetExhausted bool
	Iterations      int
	RulesApplied    int
}

// AllFacts returns the fact map's values as a slice, for convenience.
func (r *Result) AllFacts() []fact.Fact {
	out := make([]fact.Fact, 0, len(r.Facts))
	for _, f := range r.Facts {
		out = append(out, f)
	}
	return out
}

// priority computes the agenda priority of a fact derived by a rule of the
// given specificity: 0.3*specificity + 0.3*confidence + 0.1 recency bias.
// Larger pops first.
func priority(specificity int, confidence float64) float64 {
	return 0.3*float64(specificity) + 0.3*confidence + 0.1
}

// Chain runs the main agenda loop: seed, then repeatedly pop the
// highest-priority fact and try every rule against it, admitting
// non-conflicting conclusions until the agenda drains or the budget
// exhausts. rules are sorted by descending priority (then input order) upon
// entry, as required by the ordering guarantees in the concurrency model.
func Chain(initial []fact.Fact, rules []fact.Rule, tracker *budget.Tracker, detector *conflict.Detector, opts Options) *Result {
	if opts.ConflictCheckInterval <= 0 {
		opts.ConflictCheckInterval = 10
	}
	sortedRules := make([]fact.Rule, len(rules))
	copy(sortedRules, rules)
	sort.SliceStable(sortedRules, func(i, j int) bool {
		return sortedRules[i].Priority > sortedRules[j].Priority
	})

	r := &Result{Facts: make(map[string]fact.Fact)}
	ag := newAgenda()

	for _, f := range initial {
		r.Facts[f.InstanceKey()] = f
		ag.push(f.InstanceKey(), 0)
		r.Trace = append(r.Trace, TraceEntry{Kind: "seed", FactID: f.FactID})
	}

	for !ag.empty() {
		if tracker.Exhausted() {
			r.BudgetExhausted = true
			break
		}
		key, ok := ag.pop()
		if !ok {
			break
		}
		f, exists := r.Facts[key]
		if !exists {
			continue // superseded/removed between push and pop
		}

		if !tracker.ConsumeStep(1) {
			r.BudgetExhausted = true
			break
		}
		r.Iterations++

		for _, rule := range sortedRules {
			bindings := findRuleBindings(rule, f, r.Facts)
			for _, b := range bindings {
				if tracker.RemainingSteps() < rule.EstimatedCost {
					r.BudgetExhausted = true
					continue
				}
				if !tracker.ConsumeStep(rule.EstimatedCost) {
					r.BudgetExhausted = true
					continue
				}
				r.RulesApplied++

				for _, tmpl := range rule.Conclusions {
					candidate := tmpl.Instantiate(b)
					candidate.Provenance = []fact.ProvenanceEntry{{
						SourceID:  "forward_chain",
						Timestamp: tracker.Now(),
					}}
					if candidate.HasUnboundVar() {
						r.Trace = append(r.Trace, TraceEntry{
							Iteration: r.Iterations, Kind: "malformed_rule",
							RuleID: rule.RuleID, FactID: candidate.FactID,
							Detail: "conclusion references an unbound variable; admitted literally per policy",
						})
					}

					existingFacts := r.AllFacts()
					conflicts := detector.FindDirect(candidate, existingFacts)
					if len(conflicts) > 0 {
						r.Conflicts = append(r.Conflicts, conflicts...)
						r.Trace = append(r.Trace, TraceEntry{
							Iteration: r.Iterations, Kind: "rejected_conflict",
							RuleID: rule.RuleID, FactID: candidate.FactID,
							Detail: "direct conflict with existing fact; not admitted",
						})
						continue
					}

					instKey := candidate.InstanceKey()
					if _, already := r.Facts[instKey]; already {
						continue
					}

					r.Facts[instKey] = candidate
					r.Derived = append(r.Derived, candidate)
					r.Trace = append(r.Trace, TraceEntry{
						Iteration: r.Iterations, Kind: "applied",
						RuleID: rule.RuleID, FactID: candidate.FactID,
					})
					ag.push(instKey, priority(rule.Specificity(), candidate.Confidence))
				}
			}
		}

		if r.Iterations%opts.ConflictCheckInterval == 0 {
			scan := detector.CheckConsistency(r.AllFacts())
			if !scan.Consistent {
				r.Conflicts = append(r.Conflicts, scan.Conflicts...)
				r.Trace = append(r.Trace, TraceEntry{
					Iteration: r.Iterations, Kind: "periodic_scan",
					Detail: "full consistency scan found non-local contradictions",
				})
			}
		}
	}

	return r
}

// findRuleBindings attempts unification of f against each premise slot of
// rule; for every success it recursively finds all binding sets that
// satisfy the remaining premises against facts (depth-first enumeration).
func findRuleBindings(rule fact.Rule, f fact.Fact, facts map[string]fact.Fact) []fact.Binding {
	var results []fact.Binding
	for i, premise := range rule.Premises {
		b, ok := unify.Unify(premise, f)
		if !ok {
			continue
		}
		remaining := otherIndices(len(rule.Premises), i)
		results = append(results, matchRemaining(rule.Premises, remaining, b, facts)...)
	}
	return dedupeBindings(results)
}

func otherIndices(n, exclude int) []int {
	out := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != exclude {
			out = append(out, i)
		}
	}
	return out
}

// matchRemaining depth-first enumerates bindings satisfying premises[remaining...]
// against the fact map, extending from b.
func matchRemaining(premises []fact.Pattern, remaining []int, b fact.Binding, facts map[string]fact.Fact) []fact.Binding {
	if len(remaining) == 0 {
		return []fact.Binding{b}
	}
	idx := remaining[0]
	rest := remaining[1:]
	var out []fact.Binding
	for _, candidate := range facts {
		merged, ok := unify.UnifyWith(premises[idx], candidate, b)
		if !ok {
			continue
		}
		out = append(out, matchRemaining(premises, rest, merged, facts)...)
	}
	return out
}

// dedupeBindings removes bindings that are identical in content (same set of
// variable->term pairs), to avoid re-applying a rule multiple times for
// symmetric premise orderings that resolve to the same assignment.
func dedupeBindings(bindings []fact.Binding) []fact.Binding {
	seen := make(map[string]bool, len(bindings))
	var out []fact.Binding
	for _, b := range bindings {
		names := make([]string, 0, len(b))
		for k := range b {
			names = append(names, k)
		}
		sort.Strings(names)
		key := ""
		for _, n := range names {
			key += n + "=" + b[n].Canonical() + ";"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, b)
		}
	}
	return out
}
