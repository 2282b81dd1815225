package fact

import "fmt"

// SymbolId is a qualified predicate or variable symbol: a pair of short
// identifiers. Two symbols are equal iff both components are equal.
type SymbolId struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Symbol constructs a SymbolId.
func Symbol(namespace, name string) SymbolId {
	return SymbolId{Namespace: namespace, Name: name}
}

// Equal reports whether two symbols denote the same predicate.
func (s SymbolId) Equal(other SymbolId) bool {
	return s.Namespace == other.Namespace && s.Name == other.Name
}

// String renders "namespace.name", or bare "name" when namespace is empty.
func (s SymbolId) String() string {
	if s.Namespace == "" {
		return s.Name
	}
	return fmt.Sprintf("%s.%s", s.Namespace, s.Name)
}

// IsVariable reports whether this symbol is a pattern variable ("?x").
func (s SymbolId) IsVariable() bool {
	return len(s.Name) > 0 && s.Name[0] == '?'
}
