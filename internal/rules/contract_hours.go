package rules

import (
	"maps"
	"slices"
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// ContractHours compares the hours a contracted staff member is scheduled
// in an ISO week with the contracted hours prorated over the workdays the
// contract covers in that week. Public holidays and days on which the
// person only carries an off role (comp, vacation, sick) are not expected
// to be worked.
type ContractHours struct{}

// ID implements Rule.
func (ContractHours) ID() string { return IDContractHours }

// Evaluate implements Rule.
func (ContractHours) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	tolerance := in.Params.Float("tolerance_hours", atLeast(0))
	slotHours := in.Params.Float("slot_hours", func(v float64) bool { return v > 0 })
	workdays := in.Params.Int("workdays_per_week", intBetween(1, 7))
	off := roleSet(in.Params.Strings("off_roles"))
	if len(s.Contracts) == 0 {
		return nil, nil
	}

	// per staff and date: hours credited and whether any non-off work exists
	type day struct {
		hours  float64
		worked bool
		off    bool
	}
	days := make(map[string]map[string]*day)
	for _, a := range s.Assignments {
		if days[a.StaffID] == nil {
			days[a.StaffID] = make(map[string]*day)
		}
		k := dateKey(a.Date)
		d := days[a.StaffID][k]
		if d == nil {
			d = &day{}
			days[a.StaffID][k] = d
		}
		if off[a.Role] {
			d.off = true
			continue
		}
		d.worked = true
		if a.Hours > 0 {
			d.hours += a.Hours
		} else {
			d.hours += slotHours
		}
	}

	staff := make(map[string]bool)
	for _, c := range s.Contracts {
		staff[c.StaffID] = true
	}
	ids := slices.Sorted(maps.Keys(staff))

	var weeks []time.Time
	seen := make(map[string]bool)
	for _, d := range s.OpenDays() {
		ws := plan.WeekStart(d)
		if !seen[dateKey(ws)] {
			seen[dateKey(ws)] = true
			weeks = append(weeks, ws)
		}
	}

	var findings []Finding
	for _, ws := range weeks {
		for _, id := range ids {
			var expected, scheduled float64
			covered := false
			for i := range 7 {
				date := ws.AddDate(0, 0, i)
				if !s.Contains(date) {
					continue
				}
				d := days[id][dateKey(date)]
				if d != nil {
					scheduled += d.hours
				}
				c, ok := s.ContractFor(id, date)
				if !ok {
					continue
				}
				covered = true
				fact := in.Fact(date)
				if isoWeekday(date) > workdays || fact.IsPublicHoliday {
					continue
				}
				if d != nil && d.off && !d.worked {
					continue
				}
				expected += c.WeeklyHours / float64(workdays)
			}
			if !covered {
				continue
			}

			delta := scheduled - expected
			key := ""
			switch {
			case delta > tolerance:
				key = "contract_hours.over"
			case -delta > tolerance:
				key = "contract_hours.under"
			default:
				continue
			}
			findings = append(findings, Finding{
				RuleID:   IDContractHours,
				Severity: SeverityWarning,
				Scope:    Scope{Date: clampStart(ws, s), Staff: id},
				Key:      key,
				Payload: map[string]any{
					"week":      isoWeekLabel(ws),
					"scheduled": round2(scheduled),
					"expected":  round2(expected),
					"delta":     round2(delta),
					"tolerance": tolerance,
				},
			})
		}
	}
	return findings, nil
}

// isoWeekday numbers Monday 1 through Sunday 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
