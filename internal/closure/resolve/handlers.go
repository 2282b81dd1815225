package resolve

import (
	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/chain"
	"boundedclosure/internal/closure/fact"
)

// Input bundles everything a mode handler needs: the chainer's output, the
// budget tracker it ran under, an optional execution error, and the tuning
// knobs a caller may override.
type Input struct {
	Chain   *chain.Result
	Tracker *budget.Tracker
	Err     error

	// ReasonOverride, if set, is used verbatim instead of the derived reason
	// (the façade sets this to "conflicts_detected" when degrading strict
	// mode).
	ReasonOverride string

	// ConditionalDiscount is the confidence multiplier applied to claims in
	// conditional mode. Default 0.7 when zero.
	ConditionalDiscount float64

	// MinConfidence is the floor below which conditional mode degrades to
	// indeterminate. Default 0.2 when zero.
	MinConfidence float64

	MaxClaimsPerResult int
}

func (in Input) discount() float64 {
	if in.ConditionalDiscount > 0 {
		return in.ConditionalDiscount
	}
	return 0.7
}

func (in Input) minConfidence() float64 {
	if in.MinConfidence > 0 {
		return in.MinConfidence
	}
	return 0.2
}

func explorationStats(c *chain.Result) ExplorationStats {
	return ExplorationStats{
		Iterations:    c.Iterations,
		RulesApplied:  c.RulesApplied,
		DerivedCount:  len(c.Derived),
		ConflictCount: len(c.Conflicts),
	}
}

// factSupport returns a claim's supporting_facts: the source IDs from the
// fact's provenance, or just its own FactID when provenance is empty (e.g.
// an initial/seed fact with no derivation chain).
func factSupport(f fact.Fact) []string {
	if len(f.Provenance) == 0 {
		return []string{f.FactID}
	}
	out := make([]string, len(f.Provenance))
	for i, p := range f.Provenance {
		out[i] = p.SourceID
	}
	return out
}

// Resolve dispatches to the handler for the requested mode. Strict degrades
// to Indeterminate whenever conflicts are present; this is the universal
// fallback the tagged-variant mode design routes every irrecoverable case
// through.
func Resolve(mode Mode, in Input) QueryResult {
	switch mode {
	case Strict:
		return resolveStrict(in)
	case Conditional:
		return resolveConditional(in)
	default:
		return resolveIndeterminate(in)
	}
}

func resolveStrict(in Input) QueryResult {
	if in.Err != nil || len(in.Chain.Conflicts) > 0 {
		in.ReasonOverride = "conflicts_detected"
		if in.Err != nil {
			in.ReasonOverride = "execution_error"
		}
		return resolveIndeterminate(in)
	}

	b := NewBuilder().WithMaxClaims(in.MaxClaimsPerResult).SetMode(Strict)
	for _, f := range in.Chain.Derived {
		supporting := factSupport(f)
		b.AddClaim(Claim{
			FactID:          f.FactID,
			Predicate:       f.Predicate,
			Arguments:       f.Arguments,
			Polarity:        f.Polarity,
			Confidence:      1.0,
			SupportingFacts: supporting,
		})
	}
	for _, t := range in.Chain.Trace {
		b.AddTraceRef(t.Kind + ":" + t.FactID)
	}
	if in.Tracker != nil {
		b.SetBudget(in.Tracker.Used)
	}
	return b.Build()
}

func resolveConditional(in Input) QueryResult {
	discount := in.discount()
	b := NewBuilder().WithMaxClaims(in.MaxClaimsPerResult).SetMode(Conditional)

	total := 0.0
	count := 0
	for _, f := range in.Chain.Derived {
		conf := f.Confidence * discount
		total += conf
		count++
		b.AddClaim(Claim{
			FactID:          f.FactID,
			Predicate:       f.Predicate,
			Arguments:       f.Arguments,
			Polarity:        f.Polarity,
			Confidence:      conf,
			SupportingFacts: factSupport(f),
		})
	}

	byType := make(map[string][]string)
	for _, c := range in.Chain.Conflicts {
		byType[string(c.Type)] = append(byType[string(c.Type)], c.FactIDs...)
	}
	for t, ids := range byType {
		b.AddAssumption(Assumption{
			Description: "conflict of type " + t + " observed during derivation",
			FactIDs:     dedupeStrings(ids),
		})
	}
	b.AddConflicts(in.Chain.Conflicts)

	if in.Tracker != nil {
		b.SetBudget(in.Tracker.Used)
	}

	if count > 0 && total/float64(count) < in.minConfidence() {
		in.ReasonOverride = "low_remaining_confidence"
		return resolveIndeterminate(in)
	}
	return b.Build()
}

func resolveIndeterminate(in Input) QueryResult {
	reason := in.ReasonOverride
	if reason == "" {
		switch {
		case in.Err != nil:
			reason = "execution_error"
		case len(in.Chain.Conflicts) > 0:
			reason = "conflicts_detected"
		case in.Chain.BudgetExhausted:
			reason = "budget_exhausted"
		case len(in.Chain.Derived) == 0:
			reason = "no_derivations"
		default:
			reason = "incomplete_closure"
		}
	}

	b := NewBuilder().WithMaxClaims(in.MaxClaimsPerResult).
		SetMode(Indeterminate).
		SetReason(reason).
		AddConflicts(in.Chain.Conflicts).
		SetExplorationStats(explorationStats(in.Chain))

	if in.Tracker != nil {
		b.SetBudget(in.Tracker.Used)
	}
	return b.Build()
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
