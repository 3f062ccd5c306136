package engine

import (
	"time"

	"github.com/blackwell-systems/plancheck/internal/rules"
)

// Summary counts findings per severity.
type Summary struct {
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Infos         int `json:"infos"`
	Opportunities int `json:"opportunities"`
}

// Total returns the number of counted findings.
func (s Summary) Total() int {
	return s.Errors + s.Warnings + s.Infos + s.Opportunities
}

// Count returns the count for one severity.
func (s Summary) Count(sev rules.Severity) int {
	switch sev {
	case rules.SeverityError:
		return s.Errors
	case rules.SeverityWarning:
		return s.Warnings
	case rules.SeverityInfo:
		return s.Infos
	case rules.SeverityOpportunity:
		return s.Opportunities
	}
	return 0
}

func (s *Summary) add(sev rules.Severity) {
	switch sev {
	case rules.SeverityError:
		s.Errors++
	case rules.SeverityWarning:
		s.Warnings++
	case rules.SeverityInfo:
		s.Infos++
	case rules.SeverityOpportunity:
		s.Opportunities++
	}
}

// Report is the sorted, deduplicated result of one evaluation cycle. A
// Report is never modified after Evaluate returns it; callers that need a
// different view use Filter.
type Report struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Digest   string          `json:"digest,omitempty"`
	Rules    []string        `json:"rules"`
	Findings []rules.Finding `json:"findings"`
	Summary  Summary         `json:"summary"`
}

// HasErrors reports whether the report carries an error finding.
func (r *Report) HasErrors() bool {
	return r != nil && r.Summary.Errors > 0
}

// Filter returns the findings at or above the floor severity, in report order.
func (r *Report) Filter(floor rules.Severity) []rules.Finding {
	if r == nil {
		return nil
	}
	var out []rules.Finding
	for _, f := range r.Findings {
		if f.Severity.Rank() >= floor.Rank() {
			out = append(out, f)
		}
	}
	return out
}

// ByRule returns the findings of one rule, in report order.
func (r *Report) ByRule(ruleID string) []rules.Finding {
	if r == nil {
		return nil
	}
	var out []rules.Finding
	for _, f := range r.Findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

func summarize(findings []rules.Finding) Summary {
	var s Summary
	for _, f := range findings {
		s.add(f.Severity)
	}
	return s
}
