package controller

import (
	"fmt"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// Changes lists the findings that appeared and disappeared between two
// reports, each in report order.
type Changes struct {
	Added    []rules.Finding `json:"added"`
	Resolved []rules.Finding `json:"resolved"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Resolved) == 0
}

// Diff compares two reports by finding identity. A nil prev treats every
// finding of curr as added.
func Diff(prev, curr *engine.Report) Changes {
	before := keySet(prev)
	after := keySet(curr)

	var c Changes
	if curr != nil {
		for _, f := range curr.Findings {
			if !before[f.DedupKey()] {
				c.Added = append(c.Added, f)
			}
		}
	}
	if prev != nil {
		for _, f := range prev.Findings {
			if !after[f.DedupKey()] {
				c.Resolved = append(c.Resolved, f)
			}
		}
	}
	return c
}

func keySet(r *engine.Report) map[string]bool {
	set := make(map[string]bool)
	if r == nil {
		return set
	}
	for _, f := range r.Findings {
		set[f.DedupKey()] = true
	}
	return set
}

// Alerts turns the error and warning findings added since the last report
// into alerts, most severe first.
func (c Changes) Alerts(describe func(rules.Finding) string) []Alert {
	var alerts []Alert
	for _, f := range c.Added {
		if f.Severity.Rank() < rules.SeverityWarning.Rank() {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   string(f.Severity),
			Title:   fmt.Sprintf("%s on %s", f.RuleID, f.Scope.Date.Format("Mon 2006-01-02")),
			Message: describe(f),
		})
	}
	return alerts
}
