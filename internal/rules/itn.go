package rules

// ITN checks the designated ITN rotation: every open day in the configured
// day category needs a minimum number of ITN staff, and when a qualified
// list is configured only listed staff may take the role.
type ITN struct{}

// ID implements Rule.
func (ITN) ID() string { return IDITN }

// Evaluate implements Rule.
func (ITN) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	role := in.Params.String("role", nonEmpty)
	minPerDay := in.Params.Int("min_per_day", intAtLeast(0))
	days := in.Params.String("days", validDays)
	qualified := roleSet(in.Params.Strings("qualified_staff"))

	byDate := s.ByDate()
	var findings []Finding
	for _, day := range s.OpenDays() {
		assignments := byDate[dateKey(day)]

		staff := make(map[string]bool)
		for _, a := range assignments {
			if a.Role != role {
				continue
			}
			staff[a.StaffID] = true
			if len(qualified) > 0 && !qualified[a.StaffID] {
				findings = append(findings, Finding{
					RuleID:   IDITN,
					Severity: SeverityWarning,
					Scope:    Scope{Date: day, Slot: a.Slot, Room: a.RoomID, Staff: a.StaffID},
					Key:      "itn.unqualified",
					Payload:  map[string]any{"role": role},
				})
			}
		}

		if !matchesDays(days, in.Fact(day)) {
			continue
		}
		if len(staff) < minPerDay {
			findings = append(findings, Finding{
				RuleID:   IDITN,
				Severity: SeverityError,
				Scope:    Scope{Date: day},
				Key:      "itn.uncovered",
				Payload: map[string]any{
					"role":     role,
					"required": minPerDay,
					"assigned": len(staff),
				},
			})
		}
	}
	return findings, nil
}
