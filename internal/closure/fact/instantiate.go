package fact

// substitute recursively replaces bound variables within a term. Terms left
// unbound (including inside nested structs) retain the variable token
// literally — this is a deliberate policy choice (see design notes): the
// engine is lenient rather than failing rule application on an unbound
// conclusion variable, and the unresolved token is detectable downstream via
// HasUnboundVar.
func substitute(t Term, b Binding) Term {
	switch v := t.(type) {
	case VarTerm:
		if bound, ok := b.Lookup(v.Name); ok {
			return bound
		}
		return v
	case StructTerm:
		slots := make(map[string]Term, len(v.Slots))
		for k, slotVal := range v.Slots {
			slots[k] = substitute(slotVal, b)
		}
		return StructTerm{SymbolName: v.SymbolName, Slots: slots}
	default:
		return t
	}
}

// Instantiate materializes a candidate Fact from a Template under a Binding.
// The predicate itself is substituted if the template names a variable
// predicate (Predicate.IsVariable()).
func (tmpl Template) Instantiate(b Binding) Fact {
	predicate := tmpl.Predicate
	if predicate.IsVariable() {
		if bound, ok := b.Lookup(predicate.Name[1:]); ok {
			if st, ok := bound.(StructTerm); ok {
				predicate = st.SymbolName
			}
		}
	}

	args := make(map[string]Term, len(tmpl.Arguments))
	for k, v := range tmpl.Arguments {
		args[k] = substitute(v, b)
	}

	confidence := tmpl.Confidence
	if confidence == 0 {
		confidence = 1
	}

	f := New(predicate, args, tmpl.Polarity, tmpl.ScopeID, tmpl.Time)
	f.Confidence = confidence
	return f
}

// HasUnboundVar reports whether any argument slot still carries a literal
// variable token after instantiation — a diagnostic for the "malformed rule"
// failure mode in the forward chainer.
func (f Fact) HasUnboundVar() bool {
	for _, v := range f.Arguments {
		if containsVar(v) {
			return true
		}
	}
	return false
}

func containsVar(t Term) bool {
	switch v := t.(type) {
	case VarTerm:
		return true
	case StructTerm:
		for _, slot := range v.Slots {
			if containsVar(slot) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
