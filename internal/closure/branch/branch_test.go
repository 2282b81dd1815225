package branch

import (
	"testing"

	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/conflict"
	"boundedclosure/internal/closure/fact"
)

func TestCreateBranchConsumesBudgetAndFails(t *testing.T) {
	m := NewManager()
	root := m.CreateRoot()
	tracker := budget.New(budget.Limits{MaxBranches: 1})

	child, ok := m.CreateBranch(root, nil, tracker)
	if !ok {
		t.Fatal("expected the first branch to be created")
	}
	if child.Depth != root.Depth+1 {
		t.Fatalf("expected child depth to be parent+1, got %d", child.Depth)
	}
	if child.ParentID != root.ID {
		t.Fatalf("expected child ParentID to reference root, got %q", child.ParentID)
	}

	if _, ok := m.CreateBranch(root, nil, tracker); ok {
		t.Fatal("expected a second branch to fail once MaxBranches is exhausted")
	}
}

func TestParentLookup(t *testing.T) {
	m := NewManager()
	root := m.CreateRoot()
	tracker := budget.New(budget.Limits{MaxBranches: 10})
	child, _ := m.CreateBranch(root, nil, tracker)

	parent, ok := m.Parent(child)
	if !ok || parent.ID != root.ID {
		t.Fatalf("expected child's parent to be root, got %+v ok=%v", parent, ok)
	}

	if _, ok := m.Parent(root); ok {
		t.Fatal("expected root to have no parent")
	}
}

func TestPruneKeepsAboveThresholdAndMinimum(t *testing.T) {
	b1 := &Branch{ID: "b1", Score: 1.0, Status: StatusActive}
	b2 := &Branch{ID: "b2", Score: 0.5, Status: StatusActive}
	b3 := &Branch{ID: "b3", Score: 0.1, Status: StatusActive} // below 1.0*0.3 cutoff
	b4 := &Branch{ID: "b4", Score: 0.05, Status: StatusActive}

	kept := Prune([]*Branch{b1, b2, b3, b4}, 0.3, 2)

	keptIDs := map[string]bool{}
	for _, b := range kept {
		keptIDs[b.ID] = true
	}
	if !keptIDs["b1"] || !keptIDs["b2"] {
		t.Fatalf("expected b1 and b2 to survive pruning, kept: %+v", keptIDs)
	}
	if b4.Status != StatusPruned {
		t.Fatalf("expected b4 (lowest score, beyond min-keep) to be pruned, got %v", b4.Status)
	}
}

func TestPruneRetainsMinKeptEvenBelowThreshold(t *testing.T) {
	b1 := &Branch{ID: "b1", Score: 1.0, Status: StatusActive}
	b2 := &Branch{ID: "b2", Score: 0.01, Status: StatusActive}

	kept := Prune([]*Branch{b1, b2}, 0.3, 2)
	if len(kept) != 2 {
		t.Fatalf("expected both branches kept due to minKeptBranches=2, got %d", len(kept))
	}
	if b2.Status == StatusPruned {
		t.Fatal("expected b2 to not be marked pruned when retained by the minimum-keep floor")
	}
}

func TestMergeSingleBranchReturnsItsFacts(t *testing.T) {
	f := fact.New(fact.Symbol("test", "flies"), nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	b := &Branch{ID: "b1", DerivedFacts: []fact.Fact{f}, Status: StatusActive}

	result := Merge([]*Branch{b}, nil)
	if len(result.Kept) != 1 || result.Kept[0].FactID != f.FactID {
		t.Fatalf("expected the single branch's fact to be kept, got %+v", result.Kept)
	}
	if b.Status != StatusMerged {
		t.Fatalf("expected branch to be marked merged, got %v", b.Status)
	}
}

func TestMergeAgreeingBranchesDedupe(t *testing.T) {
	pred := fact.Symbol("test", "flies")
	f1 := fact.New(pred, nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	f2 := fact.New(pred, nil, fact.Assert, fact.RootScope(), fact.UnknownTime())

	b1 := &Branch{ID: "b1", DerivedFacts: []fact.Fact{f1}, Status: StatusActive}
	b2 := &Branch{ID: "b2", DerivedFacts: []fact.Fact{f2}, Status: StatusActive}

	result := Merge([]*Branch{b1, b2}, nil)
	if len(result.Kept) != 1 {
		t.Fatalf("expected one representative kept for agreeing branches, got %d", len(result.Kept))
	}
	if len(result.Discarded) != 1 {
		t.Fatalf("expected the duplicate to be discarded, got %d", len(result.Discarded))
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflict for agreeing polarity, got %+v", result.Conflicts)
	}
}

func TestMergeDisagreeingBranchesWithoutResolverDiscardsAll(t *testing.T) {
	pred := fact.Symbol("test", "flies")
	f1 := fact.New(pred, nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	f2 := fact.New(pred, nil, fact.Deny, fact.RootScope(), fact.UnknownTime())

	b1 := &Branch{ID: "b1", DerivedFacts: []fact.Fact{f1}, Status: StatusActive}
	b2 := &Branch{ID: "b2", DerivedFacts: []fact.Fact{f2}, Status: StatusActive}

	result := Merge([]*Branch{b1, b2}, nil)
	if len(result.Kept) != 0 {
		t.Fatalf("expected nothing kept for an unresolved disagreement, got %+v", result.Kept)
	}
	if len(result.Discarded) != 2 {
		t.Fatalf("expected both instances discarded pending resolution, got %d", len(result.Discarded))
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != conflict.Branch {
		t.Fatalf("expected one Branch-type conflict, got %+v", result.Conflicts)
	}
}

func TestMergeDisagreeingBranchesWithResolver(t *testing.T) {
	pred := fact.Symbol("test", "flies")
	f1 := fact.New(pred, nil, fact.Assert, fact.RootScope(), fact.UnknownTime())
	f1.Confidence = 0.9
	f2 := fact.New(pred, nil, fact.Deny, fact.RootScope(), fact.UnknownTime())
	f2.Confidence = 0.2

	b1 := &Branch{ID: "b1", DerivedFacts: []fact.Fact{f1}, Status: StatusActive}
	b2 := &Branch{ID: "b2", DerivedFacts: []fact.Fact{f2}, Status: StatusActive}

	result := Merge([]*Branch{b1, b2}, SimpleConflictResolver{})
	if len(result.Kept) != 1 || result.Kept[0].Polarity != fact.Assert {
		t.Fatalf("expected the higher-confidence assertion to be kept, got %+v", result.Kept)
	}
	if result.Conflicts[0].Resolution == nil {
		t.Fatal("expected the conflict to carry a Resolution once a resolver ran")
	}
}
