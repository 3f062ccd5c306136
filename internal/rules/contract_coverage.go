package rules

// ContractCoverage checks assignments against staff contracts: nobody works
// a date without an active contract, and nobody takes a role outside their
// contract. Off roles (comp, vacation, sick) are not work and are skipped.
// Plans without any contracts are not checked.
type ContractCoverage struct{}

// ID implements Rule.
func (ContractCoverage) ID() string { return IDContractCoverage }

// Evaluate implements Rule.
func (ContractCoverage) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	off := roleSet(in.Params.Strings("off_roles"))
	if len(s.Contracts) == 0 {
		return nil, nil
	}

	reported := make(map[string]bool)
	var findings []Finding
	for _, a := range s.Assignments {
		if off[a.Role] {
			continue
		}
		c, ok := s.ContractFor(a.StaffID, a.Date)
		if !ok {
			k := a.StaffID + "|" + dateKey(a.Date)
			if reported[k] {
				continue
			}
			reported[k] = true
			findings = append(findings, Finding{
				RuleID:   IDContractCoverage,
				Severity: SeverityError,
				Scope:    Scope{Date: a.Date, Staff: a.StaffID},
				Key:      "contract.missing",
			})
			continue
		}
		if c.AllowsRole(a.Role) {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   IDContractCoverage,
			Severity: SeverityWarning,
			Scope:    Scope{Date: a.Date, Slot: a.Slot, Room: a.RoomID, Staff: a.StaffID},
			Key:      "contract.role",
			Payload: map[string]any{
				"role":    a.Role,
				"allowed": c.Roles,
			},
		})
	}
	return findings, nil
}
