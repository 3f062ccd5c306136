package rules

import (
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// Coverage checks named coverage requirements (front desk, JVA, ...) on
// every open day. One Coverage value handles the requirement names listed
// in its "requirements" parameter; the same type backs frontdesk-coverage
// and jva-coverage.
type Coverage struct {
	RuleID string
}

// ID implements Rule.
func (c Coverage) ID() string { return c.RuleID }

// Evaluate implements Rule.
func (c Coverage) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	names := roleSet(in.Params.Strings("requirements"))

	var reqs []plan.CoverageRequirement
	for _, r := range s.Requirements {
		if names[r.Name] {
			reqs = append(reqs, r)
		}
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	byDate := s.ByDate()
	unmet := make(map[slotKey][]any)
	dates := make(map[slotKey]time.Time)
	var order []slotKey

	for _, day := range s.OpenDays() {
		assignments := byDate[dateKey(day)]
		fact := in.Fact(day)

		// staff per slot and role, counted once per person
		staffing := make(map[string]map[string]map[string]bool)
		for _, a := range assignments {
			if staffing[a.Slot] == nil {
				staffing[a.Slot] = make(map[string]map[string]bool)
			}
			if staffing[a.Slot][a.Role] == nil {
				staffing[a.Slot][a.Role] = make(map[string]bool)
			}
			staffing[a.Slot][a.Role][a.StaffID] = true
		}

		for _, req := range reqs {
			if !matchesDays(req.Days, fact) {
				continue
			}
			slots := plan.Slots(assignments)
			if req.Slot != "" {
				slots = []string{req.Slot}
			}
			for _, slot := range slots {
				assigned := len(staffing[slot][req.Role])
				if assigned >= req.Min {
					continue
				}
				k := slotKey{date: dateKey(day), slot: slot}
				if _, ok := unmet[k]; !ok {
					order = append(order, k)
					dates[k] = day
				}
				unmet[k] = append(unmet[k], map[string]any{
					"requirement": req.Name,
					"role":        req.Role,
					"required":    req.Min,
					"assigned":    assigned,
				})
			}
		}
	}

	sortSlotKeys(order)
	findings := make([]Finding, 0, len(order))
	for _, k := range order {
		findings = append(findings, Finding{
			RuleID:   c.RuleID,
			Severity: SeverityError,
			Scope:    Scope{Date: dates[k], Slot: k.slot},
			Key:      "coverage.unmet",
			Payload:  map[string]any{"unmet": unmet[k]},
		})
	}
	return findings, nil
}
