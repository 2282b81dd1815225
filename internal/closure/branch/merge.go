package branch

import (
	"sort"

	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
)

// ResolveDecision is a conflict resolver's verdict over a mixed-polarity
// group of fact instances sharing a FactID.
type ResolveDecision struct {
	Resolved bool
	Keep     []fact.Fact
	Discard  []fact.Fact
}

// ConflictResolver adjudicates a branch-merge conflict.
type ConflictResolver interface {
	Resolve(c conflict.Conflict, instances []fact.Fact) ResolveDecision
}

// SimpleConflictResolver prefers the instance with the highest confidence;
// ties broken by first-encountered order.
type SimpleConflictResolver struct{}

func (SimpleConflictResolver) Resolve(c conflict.Conflict, instances []fact.Fact) ResolveDecision {
	if len(instances) == 0 {
		return ResolveDecision{}
	}
	best := instances[0]
	for _, f := range instances[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	var discard []fact.Fact
	for _, f := range instances {
		if f.InstanceKey() != best.InstanceKey() {
			discard = append(discard, f)
		}
	}
	return ResolveDecision{Resolved: true, Keep: []fact.Fact{best}, Discard: discard}
}

// MergeResult is the outcome of merging one or more branches.
type MergeResult struct {
	Facts     map[string]fact.Fact // merged fact map, keyed by InstanceKey
	Kept      []fact.Fact
	Discarded []fact.Fact
	Conflicts []conflict.Conflict
}

// Merge combines the derived facts of one or more branches. The single-
// branch case returns that branch's facts unchanged. The multi-branch case
// groups all derived facts by FactID: a singleton group is accepted as-is; a
// group sharing one polarity accepts one representative (duplicates are
// discarded); a group with mixed polarities emits a branch Conflict and, if
// resolver is supplied, folds its decision into the merged set — otherwise
// the whole group is discarded pending resolution. Every input branch is
// marked merged.
func Merge(branches []*Branch, resolver ConflictResolver) MergeResult {
	if len(branches) == 1 {
		b := branches[0]
		b.Status = StatusMerged
		facts := make(map[string]fact.Fact, len(b.DerivedFacts))
		kept := make([]fact.Fact, 0, len(b.DerivedFacts))
		for _, f := range b.DerivedFacts {
			facts[f.InstanceKey()] = f
			kept = append(kept, f)
		}
		return MergeResult{Facts: facts, Kept: kept}
	}

	groups := make(map[string][]fact.Fact)
	var order []string
	for _, b := range branches {
		for _, f := range b.DerivedFacts {
			if _, seen := groups[f.FactID]; !seen {
				order = append(order, f.FactID)
			}
			groups[f.FactID] = append(groups[f.FactID], f)
		}
	}
	sort.Strings(order)

	result := MergeResult{Facts: make(map[string]fact.Fact)}
	for _, factID := range order {
		instances := groups[factID]
		polarities := make(map[fact.Polarity]bool, 2)
		for _, f := range instances {
			polarities[f.Polarity] = true
		}

		switch {
		case len(instances) == 1:
			result.Facts[instances[0].InstanceKey()] = instances[0]
			result.Kept = append(result.Kept, instances[0])

		case len(polarities) == 1:
			rep := instances[0]
			result.Facts[rep.InstanceKey()] = rep
			result.Kept = append(result.Kept, rep)
			result.Discarded = append(result.Discarded, instances[1:]...)

		default:
			factIDs := make([]string, len(instances))
			for i, f := range instances {
				factIDs[i] = f.FactID
			}
			scope := instances[0].ScopeID
			for _, f := range instances[1:] {
				scope = fact.LongerOf(scope, f.ScopeID)
			}
			c := conflict.NewBranchConflict(factIDs, scope,
				"branch merge: same fact_id derived with opposing polarity across branches")

			if resolver != nil {
				decision := resolver.Resolve(c, instances)
				kept := make([]string, 0, len(decision.Keep))
				discarded := make([]string, 0, len(decision.Discard))
				for _, f := range decision.Keep {
					result.Facts[f.InstanceKey()] = f
					result.Kept = append(result.Kept, f)
					kept = append(kept, f.FactID)
				}
				for _, f := range decision.Discard {
					discarded = append(discarded, f.FactID)
				}
				result.Discarded = append(result.Discarded, decision.Discard...)
				c.Resolution = &conflict.Resolution{Kept: kept, Discarded: discarded, Reason: "resolved by conflict resolver"}
			} else {
				result.Discarded = append(result.Discarded, instances...)
			}
			result.Conflicts = append(result.Conflicts, c)
		}
	}

	for _, b := range branches {
		b.Status = StatusMerged
	}
	return result
}
