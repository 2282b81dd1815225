package fact

import "strings"

// ScopeId is an ordered sequence of path segments that localizes a fact's
// visibility. Scope A contains scope B iff A's path is a prefix of B's.
type ScopeId []string

// Scope constructs a ScopeId from path segments.
func Scope(segments ...string) ScopeId {
	return ScopeId(segments)
}

// RootScope is the empty scope; it contains every other scope.
func RootScope() ScopeId { return ScopeId{} }

// Contains reports whether s is a prefix of other (s contains other).
func (s ScopeId) Contains(other ScopeId) bool {
	if len(s) > len(other) {
		return false
	}
	for i, seg := range s {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// Overlaps reports whether one scope contains the other. Disjoint scopes are
// invisible to each other.
func (s ScopeId) Overlaps(other ScopeId) bool {
	return s.Contains(other) || other.Contains(s)
}

// Equal reports whether two scopes denote the same path.
func (s ScopeId) Equal(other ScopeId) bool {
	if len(s) != len(other) {
		return false
	}
	for i, seg := range s {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// LongerOf returns whichever of a, b has the more specific (longer) path.
// Used by the conflict detector to report the common scope of a conflict.
func LongerOf(a, b ScopeId) ScopeId {
	if len(a) >= len(b) {
		return a
	}
	return b
}

// String renders the scope as a dotted path, "<root>" for the empty scope.
func (s ScopeId) String() string {
	if len(s) == 0 {
		return "<root>"
	}
	return strings.Join(s, ".")
}
