package server

import (
	"fmt"

	"boundedclosure/internal/closure/fact"
)

// FactInput is the wire shape of a fact accepted by the assert-fact tool and
// embedded in verify requests. Arguments are loosely typed JSON values;
// termFromJSON narrows them to fact.Term. Only atom-shaped arguments are
// accepted at this boundary — nested struct terms are a programmatic-API
// concept, not something the tool surface needs to expose.
type FactInput struct {
	Namespace  string                 `json:"namespace"`
	Predicate  string                 `json:"predicate"`
	Arguments  map[string]interface{} `json:"arguments"`
	Polarity   string                 `json:"polarity,omitempty"`
	Scope      []string               `json:"scope,omitempty"`
	EpochMS    int64                  `json:"epoch_ms,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
}

// PatternInput is the wire shape of a rule premise.
type PatternInput struct {
	Namespace string                 `json:"namespace"`
	Predicate string                 `json:"predicate"`
	Arguments map[string]interface{} `json:"arguments"`
	Polarity  string                 `json:"polarity,omitempty"`
}

// TemplateInput is the wire shape of a rule conclusion.
type TemplateInput struct {
	Namespace  string                 `json:"namespace"`
	Predicate  string                 `json:"predicate"`
	Arguments  map[string]interface{} `json:"arguments"`
	Polarity   string                 `json:"polarity,omitempty"`
	Scope      []string               `json:"scope,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
}

// RuleInput is the wire shape of a rule accepted by the add-rule tool.
type RuleInput struct {
	RuleID        string          `json:"rule_id"`
	Premises      []PatternInput  `json:"premises"`
	Conclusions   []TemplateInput `json:"conclusions"`
	Priority      int             `json:"priority,omitempty"`
	EstimatedCost int             `json:"estimated_cost,omitempty"`
}

func polarityFromString(s string) fact.Polarity {
	if s == string(fact.Deny) {
		return fact.Deny
	}
	return fact.Assert
}

// termFromJSON narrows a decoded JSON value (string, float64, bool) into an
// atom term. Arguments arriving as anything else (nested objects/arrays) are
// rejected: the tool surface only accepts flat argument sets.
func termFromJSON(v interface{}) (fact.Term, error) {
	switch val := v.(type) {
	case string:
		return fact.AtomTerm{Value: fact.String(val)}, nil
	case float64:
		if val == float64(int64(val)) {
			return fact.AtomTerm{Value: fact.Int(int64(val))}, nil
		}
		return fact.AtomTerm{Value: fact.Number(val)}, nil
	case bool:
		return fact.AtomTerm{Value: fact.Bool(val)}, nil
	default:
		return nil, fmt.Errorf("unsupported argument value %v (%T); only strings, numbers, and bools are accepted", v, v)
	}
}

func argsFromJSON(in map[string]interface{}) (map[string]fact.Term, error) {
	out := make(map[string]fact.Term, len(in))
	for k, v := range in {
		t, err := termFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		out[k] = t
	}
	return out, nil
}

// ToFact converts a FactInput into a fact.Fact, computing its content-
// addressed FactID via fact.New.
func (in FactInput) ToFact() (fact.Fact, error) {
	args, err := argsFromJSON(in.Arguments)
	if err != nil {
		return fact.Fact{}, err
	}
	predicate := fact.Symbol(in.Namespace, in.Predicate)
	scope := fact.ScopeId(in.Scope)
	t := fact.UnknownTime()
	if in.EpochMS != 0 {
		t = fact.Instant(in.EpochMS, fact.PrecisionMS)
	}
	f := fact.New(predicate, args, polarityFromString(in.Polarity), scope, t)
	if in.Confidence > 0 {
		f.Confidence = in.Confidence
	} else {
		f.Confidence = 1.0
	}
	return f, nil
}

// ToPattern converts a PatternInput into a fact.Pattern.
func (in PatternInput) ToPattern() (fact.Pattern, error) {
	args, err := argsFromJSON(in.Arguments)
	if err != nil {
		return fact.Pattern{}, err
	}
	p := fact.Pattern{
		Predicate: fact.Symbol(in.Namespace, in.Predicate),
		Arguments: args,
	}
	if in.Polarity != "" {
		pol := polarityFromString(in.Polarity)
		p.Polarity = &pol
	}
	return p, nil
}

// ToTemplate converts a TemplateInput into a fact.Template.
func (in TemplateInput) ToTemplate() (fact.Template, error) {
	args, err := argsFromJSON(in.Arguments)
	if err != nil {
		return fact.Template{}, err
	}
	conf := in.Confidence
	if conf <= 0 {
		conf = 1.0
	}
	return fact.Template{
		Predicate:  fact.Symbol(in.Namespace, in.Predicate),
		Arguments:  args,
		Polarity:   polarityFromString(in.Polarity),
		ScopeID:    fact.ScopeId(in.Scope),
		Time:       fact.UnknownTime(),
		Confidence: conf,
	}, nil
}

// ToRule converts a RuleInput into a fact.Rule.
func (in RuleInput) ToRule() (fact.Rule, error) {
	premises := make([]fact.Pattern, 0, len(in.Premises))
	for i, p := range in.Premises {
		converted, err := p.ToPattern()
		if err != nil {
			return fact.Rule{}, fmt.Errorf("premise %d: %w", i, err)
		}
		premises = append(premises, converted)
	}
	conclusions := make([]fact.Template, 0, len(in.Conclusions))
	for i, c := range in.Conclusions {
		converted, err := c.ToTemplate()
		if err != nil {
			return fact.Rule{}, fmt.Errorf("conclusion %d: %w", i, err)
		}
		conclusions = append(conclusions, converted)
	}
	return fact.Rule{
		RuleID:        in.RuleID,
		Premises:      premises,
		Conclusions:   conclusions,
		Priority:      in.Priority,
		EstimatedCost: in.EstimatedCost,
	}, nil
}
