package fact

// Pattern is a Fact-shaped template used as a rule premise. Predicate and
// slot values may be variables (fact.VarTerm, or a SymbolId whose Name
// starts with "?" to bind the matched predicate itself).
type Pattern struct {
	Predicate SymbolId        `json:"predicate"`
	Arguments map[string]Term `json:"arguments"`
	// Polarity, when non-nil, must equal the matched fact's polarity;
	// nil matches either polarity.
	Polarity *Polarity `json:"polarity,omitempty"`
}

// Template is a Fact-shaped conclusion: a predicate/argument/polarity/scope/
// time skeleton that references bound variables, instantiated under a
// Binding to produce a candidate Fact.
type Template struct {
	Predicate  SymbolId        `json:"predicate"`
	Arguments  map[string]Term `json:"arguments"`
	Polarity   Polarity        `json:"polarity"`
	ScopeID    ScopeId         `json:"scope_id"`
	Time       TimeRef         `json:"time"`
	Confidence float64         `json:"confidence"`
}

// Rule is a forward-chaining production: premises that must all unify
// against the fact map, producing conclusions under the combined bindings.
type Rule struct {
	RuleID        string     `json:"rule_id"`
	Premises      []Pattern  `json:"premises"`
	Conclusions   []Template `json:"conclusions"`
	Priority      int        `json:"priority"`
	EstimatedCost int        `json:"estimated_cost"`
}

// Specificity is the derived specificity of a rule: the number of premises.
func (r Rule) Specificity() int {
	return len(r.Premises)
}
