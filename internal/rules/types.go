// Package rules provides the rule contract, the findings rules emit, the
// rule registry and the built-in plan rules.
package rules

import (
	"time"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/plan"
)

// Severity classifies a finding.
type Severity string

// Severity levels, most severe first.
const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInfo        Severity = "info"
	SeverityOpportunity Severity = "opportunity"
)

// Severities lists all severities from most to least severe.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityOpportunity}

// Rank orders severities; higher is more severe. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 4
	case SeverityWarning:
		return 3
	case SeverityInfo:
		return 2
	case SeverityOpportunity:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Scope locates a finding in the plan. Only Date is mandatory.
type Scope struct {
	Date  time.Time `json:"date"`
	Slot  string    `json:"slot,omitempty"`
	Room  string    `json:"room,omitempty"`
	Staff string    `json:"staff,omitempty"`
}

// Finding is one diagnostic emitted by a rule. Key names a message template
// and Payload carries the values needed to render it.
type Finding struct {
	RuleID   string         `json:"rule_id"`
	Severity Severity       `json:"severity"`
	Scope    Scope          `json:"scope"`
	Key      string         `json:"key"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// DedupKey identifies findings that report the same thing.
func (f Finding) DedupKey() string {
	return f.RuleID + "|" + plan.DateKey(f.Scope.Date) + "|" + f.Scope.Slot + "|" +
		f.Scope.Room + "|" + f.Scope.Staff + "|" + f.Key
}

// Input is everything a rule may look at during one evaluation.
type Input struct {
	Snapshot *plan.Snapshot
	Calendar calendar.Lookup
	Params   *Params
}

// Fact returns the calendar fact for date, falling back to the basic
// weekday fact when the date lies outside the resolved range.
func (in *Input) Fact(date time.Time) calendar.Fact {
	if in.Calendar != nil {
		if f, ok := in.Calendar.Fact(date); ok {
			return f
		}
	}
	return calendar.Basic(date)
}

// Rule inspects a snapshot and reports findings. Evaluate must be a pure
// function of its input and must not assume any other rule has run.
type Rule interface {
	ID() string
	Evaluate(in *Input) ([]Finding, error)
}

// Func adapts a function to the Rule interface.
type Func struct {
	RuleID string
	Fn     func(in *Input) ([]Finding, error)
}

// ID implements Rule.
func (f Func) ID() string { return f.RuleID }

// Evaluate implements Rule.
func (f Func) Evaluate(in *Input) ([]Finding, error) { return f.Fn(in) }
