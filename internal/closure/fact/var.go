package fact

import "strings"

// VarTerm is a pattern variable, written "?name" in premises and templates.
type VarTerm struct {
	Name string
}

func (VarTerm) isTerm() {}

func (t VarTerm) Canonical() string { return "?" + t.Name }

func (t VarTerm) Equal(other Term) bool {
	o, ok := other.(VarTerm)
	return ok && o.Name == t.Name
}

// IsVarName reports whether a raw slot/predicate name denotes a variable.
func IsVarName(s string) bool {
	return strings.HasPrefix(s, "?")
}

// Var constructs a variable term, stripping a leading "?" if present so
// callers may pass either "x" or "?x".
func Var(name string) VarTerm {
	return VarTerm{Name: strings.TrimPrefix(name, "?")}
}
