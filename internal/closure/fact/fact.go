package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Polarity is the sign of a claim: Assert or Deny.
type Polarity string

const (
	Assert Polarity = "assert"
	Deny   Polarity = "deny"
)

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == Assert {
		return Deny
	}
	return Assert
}

// ProvenanceEntry records where a fact's claim came from. Timestamp is zero
// when the engine's time source is running in deterministic mode.
type ProvenanceEntry struct {
	SourceID  string `json:"source_id"`
	Timestamp int64  `json:"timestamp"`
}

// Fact is a polarized, scoped, timed assertion about a predicate applied to
// arguments.
//
// Invariant I1 (identity): two Facts with equal FactID represent claims
// about the same predicate on the same arguments; they may still differ in
// polarity, scope, time.
type Fact struct {
	FactID      string                     `json:"fact_id"`
	Predicate   SymbolId                   `json:"predicate"`
	Arguments   map[string]Term            `json:"arguments"`
	Polarity    Polarity                   `json:"polarity"`
	ScopeID     ScopeId                    `json:"scope_id"`
	Time        TimeRef                    `json:"time"`
	Confidence  float64                    `json:"confidence"`
	Provenance  []ProvenanceEntry          `json:"provenance,omitempty"`
}

// New constructs a Fact with its content-hashed FactID filled in and a
// default confidence of 1.
func New(predicate SymbolId, args map[string]Term, polarity Polarity, scope ScopeId, t TimeRef) Fact {
	f := Fact{
		Predicate:  predicate,
		Arguments:  args,
		Polarity:   polarity,
		ScopeID:    scope,
		Time:       t,
		Confidence: 1,
	}
	f.FactID = ComputeFactID(predicate, args)
	return f
}

// sortedArgNames returns argument slot names in lexicographic order.
func sortedArgNames(args map[string]Term) []string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CanonicalArgsString renders predicate + sorted argument entries as a single
// deterministic string. Canonicalizing twice equals canonicalizing once: the
// output is already in canonical form and re-canonicalizing it is a no-op
// from the caller's perspective (same bytes in, same bytes out).
func CanonicalArgsString(predicate SymbolId, args map[string]Term) string {
	var b strings.Builder
	b.WriteString(predicate.String())
	b.WriteByte('|')
	for i, name := range sortedArgNames(args) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(args[name].Canonical())
	}
	return b.String()
}

// ComputeFactID hashes the canonical string over (predicate, canonical-sorted
// arguments) only — scope, time, polarity, and provenance are not hashed.
// Identical predicates with identical arguments collide by design.
func ComputeFactID(predicate SymbolId, args map[string]Term) string {
	sum := sha256.Sum256([]byte(CanonicalArgsString(predicate, args)))
	return hex.EncodeToString(sum[:16])
}

// InstanceKey identifies a specific Fact instance — not just its content
// identity (FactID) but the particular polarity/scope/time combination it
// carries. The fact map is keyed by InstanceKey rather than bare FactID so
// that facts which share a FactID but differ in scope or polarity (e.g. the
// same claim asserted in one scope and denied in a disjoint scope) can
// coexist, while re-deriving an identical instance is still recognized as a
// duplicate and not re-admitted.
func (f Fact) InstanceKey() string {
	return f.FactID + "\x1f" + f.ScopeID.String() + "\x1f" + string(f.Polarity) + "\x1f" + timeKey(f.Time)
}

func timeKey(t TimeRef) string {
	switch t.Kind {
	case TimeInstant:
		return "i:" + string(t.Precision) + ":" + strconv.FormatInt(t.EpochMS, 10)
	case TimeInterval:
		return "v:" + string(t.Precision) + ":" + strconv.FormatInt(t.StartMS, 10) + ":" + strconv.FormatInt(t.EndMS, 10)
	case TimeRelative:
		return "r:" + t.AnchorID + ":" + strconv.FormatInt(t.OffsetMS, 10)
	default:
		return "u"
	}
}

// ArgsEqual reports canonical (deep, slot-sort-normalized) equality of two
// argument maps.
func ArgsEqual(a, b map[string]Term) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, exists := b[k]
		if !exists || !v.Equal(ov) {
			return false
		}
	}
	return true
}
