package mdl

import (
	"testing"

	"boundedclosure/internal/closure/conflict"
)

func TestComplexityFloorsAtPointOne(t *testing.T) {
	got := Complexity(ProgramShape{})
	if got != 0.1 {
		t.Fatalf("expected an empty program to floor at 0.1, got %v", got)
	}
}

func TestComplexityGrowsWithInstrCount(t *testing.T) {
	small := Complexity(ProgramShape{InstrCount: 1})
	large := Complexity(ProgramShape{InstrCount: 10})
	if large <= small {
		t.Fatalf("expected complexity to grow with instruction count: %v vs %v", small, large)
	}
}

func TestComplexityMacroUsesReduceScore(t *testing.T) {
	withoutMacros := Complexity(ProgramShape{InstrCount: 5})
	withMacros := Complexity(ProgramShape{InstrCount: 5, MacroUses: 3})
	if withMacros >= withoutMacros {
		t.Fatalf("expected macro reuse to reduce complexity: %v vs %v", withMacros, withoutMacros)
	}
}

func TestResidualLossZeroForPerfectMatch(t *testing.T) {
	if got := ResidualLoss(Residual{}); got != 0 {
		t.Fatalf("expected zero residual loss for a perfect match, got %v", got)
	}
}

func TestCorrectnessPenaltySumsConflictSeverities(t *testing.T) {
	e := Execution{
		Conflicts: []conflict.Conflict{{Type: conflict.Direct}, {Type: conflict.Temporal}},
		Mode:      "strict",
	}
	got := CorrectnessPenalty(e)
	want := severities[conflict.Direct] + severities[conflict.Temporal]
	if got != want {
		t.Fatalf("expected correctness penalty %v, got %v", want, got)
	}
}

func TestCorrectnessPenaltyModePenalties(t *testing.T) {
	indeterminate := CorrectnessPenalty(Execution{Mode: "indeterminate"})
	if indeterminate != 1.5 {
		t.Fatalf("expected indeterminate mode penalty of 1.5, got %v", indeterminate)
	}

	conditional := CorrectnessPenalty(Execution{Mode: "conditional", LowConfidenceClaims: 2})
	if want := 0.5 + 0.3*2; conditional != want {
		t.Fatalf("expected conditional penalty %v, got %v", want, conditional)
	}

	strict := CorrectnessPenalty(Execution{Mode: "strict"})
	if strict != 0 {
		t.Fatalf("expected strict mode with no conflicts to carry zero penalty, got %v", strict)
	}
}

func TestBudgetPenaltyExhaustionAndUtilization(t *testing.T) {
	exhausted := BudgetPenalty(Execution{BudgetExhausted: true})
	if exhausted != 2.0 {
		t.Fatalf("expected budget-exhaustion penalty of 2.0, got %v", exhausted)
	}

	util := 0.95
	highUtil := BudgetPenalty(Execution{StepUtilization: util})
	if want := (util - 0.9) * 10; highUtil != want {
		t.Fatalf("expected high-utilization penalty %v, got %v", want, highUtil)
	}

	lowUtil := BudgetPenalty(Execution{StepUtilization: 0.5})
	if lowUtil != 0 {
		t.Fatalf("expected no penalty below the 90%% utilization threshold, got %v", lowUtil)
	}
}

func TestEvaluateCombinesWeightedComponents(t *testing.T) {
	w := DefaultWeights()
	p := ProgramShape{InstrCount: 2}
	r := Residual{Mismatches: 1}
	e := Execution{BudgetExhausted: true, Mode: "strict"}

	score := Evaluate(p, r, e, w)
	want := w.Complexity*score.Complexity + w.Residual*score.Residual + w.Correctness*score.Correctness + w.Budget*score.Budget
	if score.Total != want {
		t.Fatalf("expected Total to equal the weighted sum of components, got %v want %v", score.Total, want)
	}
}
