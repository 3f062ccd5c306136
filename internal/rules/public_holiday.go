package rules

// PublicHoliday flags work scheduled on a public holiday. Off-role entries
// (comp, vacation, sick) are bookkeeping and not reported.
type PublicHoliday struct{}

// ID implements Rule.
func (PublicHoliday) ID() string { return IDPublicHoliday }

// Evaluate implements Rule.
func (PublicHoliday) Evaluate(in *Input) ([]Finding, error) {
	off := roleSet(in.Params.Strings("off_roles"))

	var findings []Finding
	for _, a := range in.Snapshot.Assignments {
		if off[a.Role] {
			continue
		}
		fact := in.Fact(a.Date)
		if !fact.IsPublicHoliday {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   IDPublicHoliday,
			Severity: SeverityWarning,
			Scope:    Scope{Date: a.Date, Slot: a.Slot, Room: a.RoomID, Staff: a.StaffID},
			Key:      "public_holiday.assigned",
			Payload: map[string]any{
				"holiday": fact.HolidayName,
				"role":    a.Role,
			},
		})
	}
	return findings, nil
}
