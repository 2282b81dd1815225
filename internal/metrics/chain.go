package metrics

import "sync/atomic"

// ChainMetrics tracks low-overhead atomic counters for the forward chainer's
// hot path — cheap enough to update on every agenda pop without the
// Collector's mutex and timestamped history.
type ChainMetrics struct {
	iterationsTotal    atomic.Int64
	rulesAppliedTotal  atomic.Int64
	factsDerivedTotal  atomic.Int64
	conflictsDirect    atomic.Int64
	conflictsTemporal  atomic.Int64
	conflictsBranch    atomic.Int64
	budgetExhaustions  atomic.Int64
}

// NewChainMetrics creates a new chain metrics tracker.
func NewChainMetrics() *ChainMetrics {
	return &ChainMetrics{}
}

// RecordIteration records one agenda-pop iteration.
func (m *ChainMetrics) RecordIteration() {
	m.iterationsTotal.Add(1)
}

// RecordRuleApplied records one successful rule application.
func (m *ChainMetrics) RecordRuleApplied() {
	m.rulesAppliedTotal.Add(1)
}

// RecordFactDerived records one newly admitted derived fact.
func (m *ChainMetrics) RecordFactDerived() {
	m.factsDerivedTotal.Add(1)
}

// RecordConflict records a detected conflict by type ("direct", "temporal",
// or "branch"); any other value, including "indirect", is ignored.
func (m *ChainMetrics) RecordConflict(conflictType string) {
	switch conflictType {
	case "direct":
		m.conflictsDirect.Add(1)
	case "temporal":
		m.conflictsTemporal.Add(1)
	case "branch":
		m.conflictsBranch.Add(1)
	}
}

// RecordBudgetExhaustion records a run terminating early on budget exhaustion.
func (m *ChainMetrics) RecordBudgetExhaustion() {
	m.budgetExhaustions.Add(1)
}

// GetStats returns current counter values.
func (m *ChainMetrics) GetStats() map[string]int64 {
	return map[string]int64{
		"iterations_total":    m.iterationsTotal.Load(),
		"rules_applied_total": m.rulesAppliedTotal.Load(),
		"facts_derived_total": m.factsDerivedTotal.Load(),
		"conflicts_direct":    m.conflictsDirect.Load(),
		"conflicts_temporal":  m.conflictsTemporal.Load(),
		"conflicts_branch":    m.conflictsBranch.Load(),
		"budget_exhaustions":  m.budgetExhaustions.Load(),
	}
}

// ConflictRate returns conflicts-per-iteration, 0 when no iterations ran yet.
func (m *ChainMetrics) ConflictRate() float64 {
	iterations := m.iterationsTotal.Load()
	if iterations == 0 {
		return 0.0
	}
	conflicts := m.conflictsDirect.Load() + m.conflictsTemporal.Load() + m.conflictsBranch.Load()
	return float64(conflicts) / float64(iterations)
}

// BudgetExhaustionRate returns the share of runs that hit budget exhaustion,
// given the total number of runs observed.
func (m *ChainMetrics) BudgetExhaustionRate(totalRuns int64) float64 {
	if totalRuns == 0 {
		return 0.0
	}
	return float64(m.budgetExhaustions.Load()) / float64(totalRuns)
}
