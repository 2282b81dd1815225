// Package conflict implements three-way (direct / temporal / branch)
// contradiction detection under a configurable time-overlap policy and scope
// visibility rules. Indirect conflicts are referenced but never produced
// here — that requires rule traversal and is left as an interface point for
// an external module, per design.
package conflict

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"boundedclosure/internal/closure/fact"
)

// Type discriminates the kind of contradiction detected.
type Type string

const (
	Direct   Type = "direct"
	Temporal Type = "temporal"
	Indirect Type = "indirect"
	Branch   Type = "branch"
)

// Resolution records how a conflict was resolved, e.g. by a branch merge.
type Resolution struct {
	Kept     []string `json:"kept"`
	Discarded []string `json:"discarded"`
	Reason   string   `json:"reason"`
}

// Conflict records a detected contradiction between two or more facts.
type Conflict struct {
	ConflictID string      `json:"conflict_id"`
	Type       Type        `json:"type"`
	FactIDs    []string    `json:"fact_ids"`
	ScopeID    *fact.ScopeId `json:"scope_id,omitempty"`
	Reason     string      `json:"reason"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

// computeID hashes (type, sorted fact ids, scope path or "global").
func computeID(t Type, factIDs []string, scopePath string) string {
	sorted := append([]string(nil), factIDs...)
	sort.Strings(sorted)
	if scopePath == "" {
		scopePath = "global"
	}
	input := string(t) + "|" + strings.Join(sorted, ",") + "|" + scopePath
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}

// newConflict builds a Conflict with a computed ConflictID from its parts.
func newConflict(t Type, a, b fact.Fact, scope fact.ScopeId, reason string) Conflict {
	factIDs := []string{a.FactID, b.FactID}
	c := Conflict{
		Type:    t,
		FactIDs: factIDs,
		ScopeID: &scope,
		Reason:  reason,
	}
	c.ConflictID = computeID(t, factIDs, scope.String())
	return c
}

// Detector finds contradictions under a declared time-overlap policy.
type Detector struct {
	Policy fact.OverlapPolicy
}

// New constructs a Detector with the given overlap policy.
func New(policy fact.OverlapPolicy) *Detector {
	return &Detector{Policy: policy}
}

// isDirect implements Invariant I2: two facts conflict directly iff fact_id
// equal, polarities opposite, scopes overlap, times overlap under policy.
func (d *Detector) isDirect(a, b fact.Fact) bool {
	return a.FactID == b.FactID &&
		a.Polarity != b.Polarity &&
		a.ScopeID.Overlaps(b.ScopeID) &&
		fact.TimeOverlaps(a.Time, b.Time, d.Policy)
}

// isTemporal covers the case where two independently authored facts overlap
// without sharing FactID yet: same predicate, same canonical arguments,
// opposite polarity, overlapping scope and time.
func (d *Detector) isTemporal(a, b fact.Fact) bool {
	if a.FactID == b.FactID {
		return false // already covered by direct
	}
	return a.Predicate.Equal(b.Predicate) &&
		fact.ArgsEqual(a.Arguments, b.Arguments) &&
		a.Polarity != b.Polarity &&
		a.ScopeID.Overlaps(b.ScopeID) &&
		fact.TimeOverlaps(a.Time, b.Time, d.Policy)
}

// FindDirect reports all direct conflicts between f and the supplied facts.
func (d *Detector) FindDirect(f fact.Fact, facts []fact.Fact) []Conflict {
	var out []Conflict
	for _, other := range facts {
		if other.FactID == f.FactID && other.Polarity == f.Polarity {
			continue
		}
		if d.isDirect(f, other) {
			scope := fact.LongerOf(f.ScopeID, other.ScopeID)
			out = append(out, newConflict(Direct, f, other, scope,
				"direct contradiction: equal fact_id, opposite polarity, overlapping scope and time"))
		}
	}
	return out
}

// FindTemporal reports all temporal conflicts between f and the supplied
// facts.
func (d *Detector) FindTemporal(f fact.Fact, facts []fact.Fact) []Conflict {
	var out []Conflict
	for _, other := range facts {
		if d.isTemporal(f, other) {
			scope := fact.LongerOf(f.ScopeID, other.ScopeID)
			out = append(out, newConflict(Temporal, f, other, scope,
				"temporal contradiction: same predicate and arguments, opposite polarity, overlapping scope and time, distinct fact_id"))
		}
	}
	return out
}

// FindConflicts is the union of FindDirect and FindTemporal, for callers
// that want both kinds for one fact. The chainer's admission gate calls
// FindDirect alone, and CheckConsistency calls FindDirect and FindTemporal
// per pair itself.
func (d *Detector) FindConflicts(f fact.Fact, facts []fact.Fact) []Conflict {
	out := d.FindDirect(f, facts)
	out = append(out, d.FindTemporal(f, facts)...)
	return out
}

// NewBranchConflict builds a Conflict of type Branch over the given fact IDs
// (a group of instances sharing a FactID but disagreeing on polarity across
// merged branches).
func NewBranchConflict(factIDs []string, scope fact.ScopeId, reason string) Conflict {
	sorted := append([]string(nil), factIDs...)
	sort.Strings(sorted)
	c := Conflict{
		Type:    Branch,
		FactIDs: sorted,
		ScopeID: &scope,
		Reason:  reason,
	}
	c.ConflictID = computeID(Branch, sorted, scope.String())
	return c
}

// ConsistencyResult is the outcome of a full pairwise consistency scan.
type ConsistencyResult struct {
	Consistent bool
	Conflicts  []Conflict
}

// CheckConsistency runs a full O(n^2) scan over facts, deduplicating
// conflicts by ConflictID (each unordered pair is reported once).
func (d *Detector) CheckConsistency(facts []fact.Fact) ConsistencyResult {
	seen := make(map[string]bool)
	var all []Conflict
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			pairConflicts := append(d.FindDirect(facts[i], []fact.Fact{facts[j]}),
				d.FindTemporal(facts[i], []fact.Fact{facts[j]})...)
			for _, c := range pairConflicts {
				if !seen[c.ConflictID] {
					seen[c.ConflictID] = true
					all = append(all, c)
				}
			}
		}
	}
	return ConsistencyResult{Consistent: len(all) == 0, Conflicts: all}
}
