// Package branch implements parallel hypothesis exploration: branching,
// score-threshold pruning, and merge-with-resolution.
//
// Branches point to parents; rather than an owning reference (which would
// create reference cycles), the manager keeps an arena — a graph.Graph
// id->Branch mapping with parent edges — and stores "deleted" branches as
// flagged (pruned/merged) rather than removed, so ancestors stay traceable.
// This mirrors the snapshot+delta branch bookkeeping in the teacher's
// backtracking manager, generalized to a proper graph structure.
package branch

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/dominikbraun/graph"

	"boundedclosure/internal/closure/budget"
	"boundedclosure/internal/closure/fact"
)

// Status is the lifecycle state of a Branch: a branch is either active,
// pruned, or merged — never more than one (Invariant B1).
type Status string

const (
	StatusActive Status = "active"
	StatusPruned Status = "pruned"
	StatusMerged Status = "merged"
)

// Branch is one hypothesis-exploration path.
type Branch struct {
	ID           string
	ParentID     string // empty for the root
	Hypothesis   *fact.Template
	Snapshot     map[string]fact.Fact // shallow copy of the fact map at creation
	Depth        int
	Score        float64
	DerivedFacts []fact.Fact
	Status       Status
}

// Hash returns the vertex-hash key for the graph library: the branch ID.
func Hash(b *Branch) string { return b.ID }

// Manager owns the branch tree for one verification call.
type Manager struct {
	g       graph.Graph[string, *Branch]
	counter atomic.Int64
}

// NewManager creates an empty branch manager.
func NewManager() *Manager {
	return &Manager{g: graph.New(Hash, graph.Directed())}
}

func (m *Manager) nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, m.counter.Add(1))
}

// CreateRoot creates the root branch: depth 0, score 1.0.
func (m *Manager) CreateRoot() *Branch {
	b := &Branch{ID: m.nextID("branch"), Depth: 0, Score: 1.0, Status: StatusActive}
	_ = m.g.AddVertex(b)
	return b
}

// CreateBranch creates a child of parent under the given hypothesis,
// consuming one branch-budget unit. Fails if the budget is exhausted.
func (m *Manager) CreateBranch(parent *Branch, hypothesis *fact.Template, tracker *budget.Tracker) (*Branch, bool) {
	if !tracker.ConsumeBranch() {
		return nil, false
	}

	score := parent.Score
	if hypothesis != nil {
		// A hypothesis under exploration starts from the parent's score;
		// spec leaves hypothesis-specific scoring to the MDL scorer, which
		// runs later over the branch's actual derivations.
		score = parent.Score
	}

	child := &Branch{
		ID:         m.nextID("branch"),
		ParentID:   parent.ID,
		Hypothesis: hypothesis,
		Snapshot:   shallowCopy(parent.Snapshot),
		Depth:      parent.Depth + 1,
		Score:      score,
		Status:     StatusActive,
	}
	_ = m.g.AddVertex(child)
	_ = m.g.AddEdge(parent.ID, child.ID)
	return child, true
}

func shallowCopy(m map[string]fact.Fact) map[string]fact.Fact {
	if m == nil {
		return nil
	}
	cp := make(map[string]fact.Fact, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Get looks up a branch by ID.
func (m *Manager) Get(id string) (*Branch, bool) {
	b, err := m.g.Vertex(id)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Parent returns a branch's parent, if any.
func (m *Manager) Parent(b *Branch) (*Branch, bool) {
	if b.ParentID == "" {
		return nil, false
	}
	return m.Get(b.ParentID)
}

const defaultPruneThreshold = 0.3
const defaultMinKeptBranches = 2

// Prune sorts branches by descending score and keeps everything scoring at
// least best.Score * pruneThreshold (default 0.3), always retaining at least
// minKeptBranches (default 2) even if below threshold. Pruning does not
// release branch budget: the budget tracks attempts, not survivors.
func Prune(branches []*Branch, pruneThreshold float64, minKeptBranches int) []*Branch {
	if pruneThreshold <= 0 {
		pruneThreshold = defaultPruneThreshold
	}
	if minKeptBranches <= 0 {
		minKeptBranches = defaultMinKeptBranches
	}
	if len(branches) == 0 {
		return nil
	}

	sorted := make([]*Branch, len(branches))
	copy(sorted, branches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	best := sorted[0].Score
	cutoff := best * pruneThreshold

	kept := make([]*Branch, 0, len(sorted))
	for i, b := range sorted {
		if b.Score >= cutoff || i < minKeptBranches {
			kept = append(kept, b)
		} else {
			b.Status = StatusPruned
		}
	}
	return kept
}
