package fact

import (
	"sort"
	"strings"
)

// Term is either an Atom or a Struct. Slot order is irrelevant for equality;
// canonicalization sorts slot names lexicographically.
type Term interface {
	isTerm()
	// Canonical renders a deterministic string used for hashing and equality
	// after slot-sort normalization.
	Canonical() string
	// Equal reports deep structural equality, after slot-sort normalization
	// for structs.
	Equal(other Term) bool
}

// AtomTerm wraps an Atom as a Term.
type AtomTerm struct {
	Value Atom
}

func (AtomTerm) isTerm() {}

func (t AtomTerm) Canonical() string { return t.Value.Canonical() }

func (t AtomTerm) Equal(other Term) bool {
	o, ok := other.(AtomTerm)
	if !ok {
		return false
	}
	return t.Value.Equal(o.Value)
}

// StructTerm is a compound term: a symbol applied to named slots.
type StructTerm struct {
	SymbolName SymbolId
	Slots      map[string]Term
}

func (StructTerm) isTerm() {}

// sortedSlotNames returns the struct's slot names, lexicographically sorted.
func (t StructTerm) sortedSlotNames() []string {
	names := make([]string, 0, len(t.Slots))
	for k := range t.Slots {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (t StructTerm) Canonical() string {
	var b strings.Builder
	b.WriteString(t.SymbolName.String())
	b.WriteByte('(')
	for i, name := range t.sortedSlotNames() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(t.Slots[name].Canonical())
	}
	b.WriteByte(')')
	return b.String()
}

func (t StructTerm) Equal(other Term) bool {
	o, ok := other.(StructTerm)
	if !ok {
		return false
	}
	if !t.SymbolName.Equal(o.SymbolName) {
		return false
	}
	if len(t.Slots) != len(o.Slots) {
		return false
	}
	for k, v := range t.Slots {
		ov, exists := o.Slots[k]
		if !exists || !v.Equal(ov) {
			return false
		}
	}
	return true
}
