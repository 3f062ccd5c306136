package rules

import (
	"slices"
	"strings"
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// SaturdayCompensation requires every Saturday worked to be matched by a
// compensation assignment (role compensation_role) for the same person
// within window_days after the Saturday. Each compensation entry offsets at
// most one Saturday, earliest Saturday first. When the window reaches past
// the end of the plan the missing entry may still be planned later, so the
// finding is informational.
type SaturdayCompensation struct{}

// ID implements Rule.
func (SaturdayCompensation) ID() string { return IDSaturdayCompensation }

// Evaluate implements Rule.
func (SaturdayCompensation) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	window := in.Params.Int("window_days", intBetween(1, 90))
	compRole := in.Params.String("compensation_role", nonEmpty)

	type worked struct {
		staff string
		date  time.Time
	}
	seen := make(map[string]bool)
	var saturdays []worked
	comps := make(map[string][]time.Time)

	for _, a := range s.Assignments {
		if a.Role == compRole {
			comps[a.StaffID] = append(comps[a.StaffID], a.Date)
			continue
		}
		if !in.Fact(a.Date).IsSaturday() {
			continue
		}
		k := a.StaffID + "|" + dateKey(a.Date)
		if seen[k] {
			continue
		}
		seen[k] = true
		saturdays = append(saturdays, worked{staff: a.StaffID, date: a.Date})
	}
	if len(saturdays) == 0 {
		return nil, nil
	}

	slices.SortFunc(saturdays, func(a, b worked) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}
		return strings.Compare(a.staff, b.staff)
	})
	for id := range comps {
		slices.SortFunc(comps[id], time.Time.Compare)
	}
	used := make(map[string][]bool, len(comps))
	for id, dates := range comps {
		used[id] = make([]bool, len(dates))
	}

	var findings []Finding
	for _, w := range saturdays {
		deadline := w.date.AddDate(0, 0, window)
		matched := false
		for i, d := range comps[w.staff] {
			if used[w.staff][i] || !d.After(w.date) || d.After(deadline) {
				continue
			}
			used[w.staff][i] = true
			matched = true
			break
		}
		if matched {
			continue
		}

		f := Finding{
			RuleID:   IDSaturdayCompensation,
			Severity: SeverityWarning,
			Scope:    Scope{Date: w.date, Staff: w.staff},
			Key:      "saturday_compensation.missing",
			Payload: map[string]any{
				"window_days": window,
				"deadline":    plan.DateKey(deadline),
			},
		}
		if deadline.After(s.End) {
			f.Severity = SeverityInfo
			f.Key = "saturday_compensation.pending"
		}
		findings = append(findings, f)
	}
	return findings, nil
}
