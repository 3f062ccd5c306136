package rules

import (
	"maps"
	"slices"
	"time"
)

// AssistPerDoctor flags rooms where a doctor works a slot without the
// required number of assistants alongside.
type AssistPerDoctor struct{}

// ID implements Rule.
func (AssistPerDoctor) ID() string { return IDAssistPerDoctor }

// Evaluate implements Rule.
func (AssistPerDoctor) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	doctorRole := in.Params.String("doctor_role", nonEmpty)
	assistantRole := in.Params.String("assistant_role", nonEmpty)
	ratio := in.Params.Int("ratio", intAtLeast(1))

	type cell struct {
		date       time.Time
		doctors    map[string]bool
		assistants map[string]bool
	}
	cells := make(map[roomSlotKey]*cell)
	var order []roomSlotKey
	for _, a := range s.Assignments {
		if a.Role != doctorRole && a.Role != assistantRole {
			continue
		}
		k := roomSlotKey{date: dateKey(a.Date), slot: a.Slot, room: a.RoomID}
		c, ok := cells[k]
		if !ok {
			c = &cell{date: a.Date, doctors: make(map[string]bool), assistants: make(map[string]bool)}
			cells[k] = c
			order = append(order, k)
		}
		if a.Role == doctorRole {
			c.doctors[a.StaffID] = true
		} else {
			c.assistants[a.StaffID] = true
		}
	}
	sortRoomSlotKeys(order)

	var findings []Finding
	for _, k := range order {
		c := cells[k]
		if len(c.doctors) == 0 {
			continue
		}
		required := ratio * len(c.doctors)
		if len(c.assistants) >= required {
			continue
		}
		doctors := slices.Sorted(maps.Keys(c.doctors))
		scope := Scope{Date: c.date, Slot: k.slot, Room: k.room}
		if len(doctors) == 1 {
			scope.Staff = doctors[0]
		}
		findings = append(findings, Finding{
			RuleID:   IDAssistPerDoctor,
			Severity: SeverityWarning,
			Scope:    scope,
			Key:      "assist.missing",
			Payload: map[string]any{
				"doctors":    doctors,
				"assistants": len(c.assistants),
				"required":   required,
			},
		})
	}
	return findings, nil
}
