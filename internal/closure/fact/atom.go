// Package fact provides the canonical fact model: atoms, terms, symbols,
// scopes, time references, and content-addressed fact identity.
package fact

import "fmt"

// AtomKind identifies which variant of Atom is populated.
type AtomKind string

const (
	AtomString AtomKind = "string"
	AtomInt    AtomKind = "int"
	AtomNumber AtomKind = "number"
	AtomBool   AtomKind = "bool"
)

// Atom is a typed primitive value, optionally tagged with a unit symbol.
// Only the field matching Kind is meaningful.
type Atom struct {
	Kind AtomKind `json:"kind"`
	Str  string   `json:"str,omitempty"`
	Int  int64    `json:"int,omitempty"`
	Num  float64  `json:"num,omitempty"`
	Bool bool     `json:"bool,omitempty"`
	Unit string   `json:"unit,omitempty"`
}

// String constructs a string atom.
func String(s string) Atom { return Atom{Kind: AtomString, Str: s} }

// Int constructs an int atom.
func Int(i int64) Atom { return Atom{Kind: AtomInt, Int: i} }

// Number constructs a float atom.
func Number(f float64) Atom { return Atom{Kind: AtomNumber, Num: f} }

// Bool constructs a bool atom.
func Bool(b bool) Atom { return Atom{Kind: AtomBool, Bool: b} }

// WithUnit returns a copy of the atom tagged with the given unit symbol.
func (a Atom) WithUnit(unit string) Atom {
	a.Unit = unit
	return a
}

// Equal reports deep structural equality between two atoms.
func (a Atom) Equal(other Atom) bool {
	if a.Kind != other.Kind || a.Unit != other.Unit {
		return false
	}
	switch a.Kind {
	case AtomString:
		return a.Str == other.Str
	case AtomInt:
		return a.Int == other.Int
	case AtomNumber:
		return a.Num == other.Num
	case AtomBool:
		return a.Bool == other.Bool
	default:
		return false
	}
}

// Canonical renders the atom as a deterministic string used in content hashing.
func (a Atom) Canonical() string {
	base := ""
	switch a.Kind {
	case AtomString:
		base = fmt.Sprintf("s:%q", a.Str)
	case AtomInt:
		base = fmt.Sprintf("i:%d", a.Int)
	case AtomNumber:
		base = fmt.Sprintf("n:%v", a.Num)
	case AtomBool:
		base = fmt.Sprintf("b:%t", a.Bool)
	default:
		base = "?:"
	}
	if a.Unit != "" {
		base += "@" + a.Unit
	}
	return base
}
