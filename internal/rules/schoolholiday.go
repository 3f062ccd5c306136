package rules

import "math"

// SchoolHoliday expects lower staffing on school-holiday weekdays. The
// limit is max_headcount when set, otherwise the average headcount of
// regular open weekdays in the plan reduced by the reduction factor.
// Staff carrying only an off role on a day do not count.
type SchoolHoliday struct{}

// ID implements Rule.
func (SchoolHoliday) ID() string { return IDSchoolHoliday }

// Evaluate implements Rule.
func (SchoolHoliday) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	reduction := in.Params.Float("reduction", between(0, 1))
	maxHeadcount := in.Params.Int("max_headcount", intAtLeast(0))
	off := roleSet(in.Params.Strings("off_roles"))

	byDate := s.ByDate()
	headcount := func(k string) int {
		staff := make(map[string]bool)
		for _, a := range byDate[k] {
			if !off[a.Role] {
				staff[a.StaffID] = true
			}
		}
		return len(staff)
	}

	total, regular := 0, 0
	for _, day := range s.OpenDays() {
		fact := in.Fact(day)
		if !fact.IsWeekday() || fact.IsSchoolHoliday || fact.IsPublicHoliday {
			continue
		}
		total += headcount(dateKey(day))
		regular++
	}

	limit := maxHeadcount
	baseline := 0.0
	if regular > 0 {
		baseline = float64(total) / float64(regular)
	}
	if limit == 0 {
		if regular == 0 {
			return nil, nil
		}
		limit = int(math.Ceil(baseline * (1 - reduction)))
	}

	var findings []Finding
	for _, day := range s.OpenDays() {
		fact := in.Fact(day)
		if !fact.IsSchoolHoliday || !fact.IsWeekday() || fact.IsPublicHoliday {
			continue
		}
		n := headcount(dateKey(day))
		if n <= limit {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   IDSchoolHoliday,
			Severity: SeverityWarning,
			Scope:    Scope{Date: day},
			Key:      "schoolholiday.overstaffed",
			Payload: map[string]any{
				"holiday":   fact.HolidayName,
				"headcount": n,
				"limit":     limit,
				"baseline":  round2(baseline),
			},
		})
	}
	return findings, nil
}
