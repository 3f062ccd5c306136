package rules

import "github.com/blackwell-systems/plancheck/internal/plan"

// EmptyPlan flags a snapshot without any assignments. Other rules stay
// silent on an empty plan because there is nothing for them to violate.
type EmptyPlan struct{}

// ID implements Rule.
func (EmptyPlan) ID() string { return IDEmptyPlan }

// Evaluate implements Rule.
func (EmptyPlan) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	if !s.IsEmpty() {
		return nil, nil
	}
	return []Finding{{
		RuleID:   IDEmptyPlan,
		Severity: SeverityWarning,
		Scope:    Scope{Date: s.Start},
		Key:      "plan.empty",
		Payload: map[string]any{
			"start": plan.DateKey(s.Start),
			"end":   plan.DateKey(s.End),
			"days":  plan.DaysBetween(s.Start, s.End) + 1,
		},
	}}, nil
}
