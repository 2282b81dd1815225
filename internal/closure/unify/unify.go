// Package unify implements pattern-to-fact matching: producing variable
// bindings from a rule premise pattern against a candidate fact, with
// no side effects and no error return — unification simply fails quietly.
package unify

import "boundedclosure/internal/closure/fact"

// Unify attempts to match pattern against f, starting from an empty binding.
func Unify(pattern fact.Pattern, f fact.Fact) (fact.Binding, bool) {
	return UnifyWith(pattern, f, fact.NewBinding())
}

// UnifyWith attempts to match pattern against f, extending existing. A
// binding conflict — a variable already bound to a different term — fails
// the match.
func UnifyWith(pattern fact.Pattern, f fact.Fact, existing fact.Binding) (fact.Binding, bool) {
	result := existing.Clone()

	// Predicate match: a leading-"?" predicate name binds to the fact's
	// predicate; otherwise the symbols must be equal.
	if pattern.Predicate.IsVariable() {
		varName := pattern.Predicate.Name[1:]
		predTerm := fact.StructTerm{SymbolName: f.Predicate, Slots: map[string]fact.Term{}}
		merged, ok := bindVar(result, varName, predTerm)
		if !ok {
			return nil, false
		}
		result = merged
	} else if !pattern.Predicate.Equal(f.Predicate) {
		return nil, false
	}

	// Polarity: if specified, it must equal the fact's; unspecified matches
	// either.
	if pattern.Polarity != nil && *pattern.Polarity != f.Polarity {
		return nil, false
	}

	// Argument match: every key in pattern.Arguments must exist in
	// f.Arguments. Variable slots bind; literal slots require deep
	// structural equality after slot-sort normalization.
	for slot, patTerm := range pattern.Arguments {
		factTerm, exists := f.Arguments[slot]
		if !exists {
			return nil, false
		}
		merged, ok := unifyTerm(patTerm, factTerm, result)
		if !ok {
			return nil, false
		}
		result = merged
	}

	return result, true
}

// unifyTerm unifies a single pattern term (which may contain variables at any
// depth) against a concrete fact term, extending binding.
func unifyTerm(pat, val fact.Term, binding fact.Binding) (fact.Binding, bool) {
	switch p := pat.(type) {
	case fact.VarTerm:
		return bindVar(binding, p.Name, val)
	case fact.StructTerm:
		v, ok := val.(fact.StructTerm)
		if !ok || !p.SymbolName.Equal(v.SymbolName) {
			return nil, false
		}
		result := binding
		for slot, patTerm := range p.Slots {
			valTerm, exists := v.Slots[slot]
			if !exists {
				return nil, false
			}
			merged, ok := unifyTerm(patTerm, valTerm, result)
			if !ok {
				return nil, false
			}
			result = merged
		}
		return result, true
	default:
		if !pat.Equal(val) {
			return nil, false
		}
		return binding, true
	}
}

// bindVar extends binding with name -> value, failing if name is already
// bound to a different term.
func bindVar(binding fact.Binding, name string, value fact.Term) (fact.Binding, bool) {
	if existing, ok := binding.Lookup(name); ok {
		if existing.Equal(value) {
			return binding, true
		}
		return nil, false
	}
	merged := binding.Clone()
	merged[name] = value
	return merged, true
}
