package resolve

import (
	"testing"

	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/chain"
	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
)

func derivedFact(confidence float64) fact.Fact {
	f := fact.New(fact.Symbol("test", "flies"), nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	f.Confidence = confidence
	return f
}

func TestResolveStrictWithNoConflictsProducesClaims(t *testing.T) {
	c := &chain.Result{Derived: []fact.Fact{derivedFact(1)}}
	tracker := budget.New(budget.Limits{})

	result := Resolve(Strict, Input{Chain: c, Tracker: tracker})
	if result.Mode != Strict {
		t.Fatalf("expected strict mode, got %v", result.Mode)
	}
	if len(result.Claims) != 1 {
		t.Fatalf("expected one claim, got %d", len(result.Claims))
	}
	if result.Claims[0].Confidence != 1.0 {
		t.Fatalf("expected strict claims to carry full confidence, got %v", result.Claims[0].Confidence)
	}
}

func TestResolveStrictDegradesOnConflict(t *testing.T) {
	c := &chain.Result{
		Derived:   []fact.Fact{derivedFact(1)},
		Conflicts: []conflict.Conflict{{ConflictID: "c1", Type: conflict.Direct}},
	}
	tracker := budget.New(budget.Limits{})

	result := Resolve(Strict, Input{Chain: c, Tracker: tracker})
	if result.Mode != Indeterminate {
		t.Fatalf("expected strict mode to degrade to indeterminate on conflict, got %v", result.Mode)
	}
	if result.Reason != "conflicts_detected" {
		t.Fatalf("expected reason 'conflicts_detected', got %q", result.Reason)
	}
}

func TestResolveConditionalAppliesDiscountAndAssumptions(t *testing.T) {
	c := &chain.Result{
		Derived:   []fact.Fact{derivedFact(1)},
		Conflicts: []conflict.Conflict{{ConflictID: "c1", Type: conflict.Temporal, FactIDs: []string{"f1", "f2"}}},
	}
	tracker := budget.New(budget.Limits{})

	result := Resolve(Conditional, Input{Chain: c, Tracker: tracker})
	if result.Mode != Conditional {
		t.Fatalf("expected conditional mode, got %v", result.Mode)
	}
	if len(result.Claims) != 1 || result.Claims[0].Confidence != 0.7 {
		t.Fatalf("expected the default 0.7 discount applied, got %+v", result.Claims)
	}
	if len(result.Assumptions) != 1 {
		t.Fatalf("expected one assumption grouped by conflict type, got %d", len(result.Assumptions))
	}
}

func TestResolveConditionalDegradesBelowMinConfidence(t *testing.T) {
	c := &chain.Result{Derived: []fact.Fact{derivedFact(0.1)}}
	tracker := budget.New(budget.Limits{})

	result := Resolve(Conditional, Input{Chain: c, Tracker: tracker})
	if result.Mode != Indeterminate {
		t.Fatalf("expected low-confidence conditional result to degrade to indeterminate, got %v", result.Mode)
	}
	if result.Reason != "low_remaining_confidence" {
		t.Fatalf("expected reason 'low_remaining_confidence', got %q", result.Reason)
	}
}

func TestResolveIndeterminateReasonPriority(t *testing.T) {
	tracker := budget.New(budget.Limits{})

	budgetExhausted := Resolve(Indeterminate, Input{Chain: &chain.Result{BudgetExhausted: true}, Tracker: tracker})
	if budgetExhausted.Reason != "budget_exhausted" {
		t.Fatalf("expected reason 'budget_exhausted', got %q", budgetExhausted.Reason)
	}

	noDerivations := Resolve(Indeterminate, Input{Chain: &chain.Result{}, Tracker: tracker})
	if noDerivations.Reason != "no_derivations" {
		t.Fatalf("expected reason 'no_derivations', got %q", noDerivations.Reason)
	}

	withConflict := Resolve(Indeterminate, Input{
		Chain:   &chain.Result{Conflicts: []conflict.Conflict{{ConflictID: "c1"}}},
		Tracker: tracker,
	})
	if withConflict.Reason != "conflicts_detected" {
		t.Fatalf("expected reason 'conflicts_detected', got %q", withConflict.Reason)
	}
}

func TestBuilderAddClaimRespectsMaxClaims(t *testing.T) {
	b := NewBuilder().WithMaxClaims(1)
	b.AddClaim(Claim{FactID: "f1"}).AddClaim(Claim{FactID: "f2"})
	result := b.Build()
	if len(result.Claims) != 1 {
		t.Fatalf("expected claim cap of 1 to be respected, got %d", len(result.Claims))
	}
}

func TestFactSupportFallsBackToFactID(t *testing.T) {
	f := fact.New(fact.Symbol("test", "x"), nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	got := factSupport(f)
	if len(got) != 1 || got[0] != f.FactID {
		t.Fatalf("expected fallback support to be [FactID], got %+v", got)
	}

	f.Provenance = []fact.ProvenanceEntry{{SourceID: "rule:birds-fly"}}
	got = factSupport(f)
	if len(got) != 1 || got[0] != "rule:birds-fly" {
		t.Fatalf("expected provenance source IDs to be used, got %+v", got)
	}
}
