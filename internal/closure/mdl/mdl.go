// Package mdl scores a program/rule set by weighted Minimum Description
// Length: complexity + residual loss + correctness penalty + budget
// penalty. Lower is better. The closure façade does not call the scorer;
// it is a standalone library for callers that rank candidate rule sets.
package mdl

import (
	"math"

	"boundedclosure/internal/closure/conflict"
)

// ProgramShape describes the rule program being scored (description length
// inputs).
type ProgramShape struct {
	InstrCount    int
	UniqueSymbols int
	MaxNesting    int
	VarCount      int
	LiteralCount  int
	MacroUses     int
}

// Residual describes predicted-vs-expected mismatch against supplied
// examples.
type Residual struct {
	Mismatches         int
	Missing            int
	Extras             int
	MeanConfidenceDiff float64
}

// Execution describes the run's correctness/budget outcome.
type Execution struct {
	Conflicts            []conflict.Conflict
	BudgetExhausted      bool
	StepUtilization      float64 // ratio in [0,1]
	BranchUtilization    float64 // ratio in [0,1]
	Mode                 string  // "strict" | "conditional" | "indeterminate"
	LowConfidenceClaims  int
}

// Weights are the per-component multipliers in the weighted sum.
type Weights struct {
	Complexity  float64
	Residual    float64
	Correctness float64
	Budget      float64
}

// DefaultWeights returns the spec's default weighting.
func DefaultWeights() Weights {
	return Weights{Complexity: 1.0, Residual: 1.0, Correctness: 2.0, Budget: 0.5}
}

// severities maps conflict type to its penalty contribution.
var severities = map[conflict.Type]float64{
	conflict.Direct:   1.0,
	conflict.Temporal: 0.7,
	conflict.Indirect: 0.5,
	conflict.Branch:   0.3,
}

// Complexity computes description length, floored at 0.1.
func Complexity(p ProgramShape) float64 {
	c := float64(p.InstrCount)*1 +
		math.Log2(float64(p.UniqueSymbols)+1)*0.5 +
		float64(p.MaxNesting)*0.3 +
		float64(p.VarCount)*0.1 +
		float64(p.LiteralCount)*0.2 -
		float64(p.MacroUses)*0.2
	if c < 0.1 {
		c = 0.1
	}
	return c
}

// ResidualLoss computes prediction loss vs supplied examples.
func ResidualLoss(r Residual) float64 {
	return float64(r.Mismatches)*1 +
		float64(r.Missing)*0.5 +
		float64(r.Extras)*0.3 +
		r.MeanConfidenceDiff*0.2
}

// CorrectnessPenalty sums conflict severities plus the mode penalty
// (indeterminate 1.5; conditional 0.5 + 0.3*#low_confidence_claims).
func CorrectnessPenalty(e Execution) float64 {
	sum := 0.0
	for _, c := range e.Conflicts {
		sum += severities[c.Type]
	}
	switch e.Mode {
	case "indeterminate":
		sum += 1.5
	case "conditional":
		sum += 0.5 + 0.3*float64(e.LowConfidenceClaims)
	}
	return sum
}

// BudgetPenalty computes the budget-exhaustion penalty (2.0) plus the
// high-utilization penalty above 90% step utilization, halved for branches.
func BudgetPenalty(e Execution) float64 {
	p := 0.0
	if e.BudgetExhausted {
		p += 2.0
	}
	if e.StepUtilization > 0.9 {
		p += (e.StepUtilization - 0.9) * 10
	}
	if e.BranchUtilization > 0.9 {
		p += (e.BranchUtilization - 0.9) * 10 / 2
	}
	return p
}

// Score is the weighted sum of the four components; lower is better.
type Score struct {
	Complexity  float64
	Residual    float64
	Correctness float64
	Budget      float64
	Total       float64
}

// Evaluate combines complexity, residual, correctness, and budget penalties
// under weights into a single MDL score.
func Evaluate(p ProgramShape, r Residual, e Execution, w Weights) Score {
	c := Complexity(p)
	res := ResidualLoss(r)
	correctness := CorrectnessPenalty(e)
	budgetPenalty := BudgetPenalty(e)
	return Score{
		Complexity:  c,
		Residual:    res,
		Correctness: correctness,
		Budget:      budgetPenalty,
		Total:       w.Complexity*c + w.Residual*res + w.Correctness*correctness + w.Budget*budgetPenalty,
	}
}
