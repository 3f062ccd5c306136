package rules

import (
	"slices"
	"time"
)

// StaffDoubleBooking flags staff placed in more than one room in the same
// slot.
type StaffDoubleBooking struct{}

// ID implements Rule.
func (StaffDoubleBooking) ID() string { return IDStaffDoubleBooking }

// Evaluate implements Rule.
func (StaffDoubleBooking) Evaluate(in *Input) ([]Finding, error) {
	type cell struct {
		date  time.Time
		rooms []string
	}
	// room field of the key carries the staff ID here
	cells := make(map[roomSlotKey]*cell)
	var order []roomSlotKey
	for _, a := range in.Snapshot.Assignments {
		if a.RoomID == "" {
			continue
		}
		k := roomSlotKey{date: dateKey(a.Date), slot: a.Slot, room: a.StaffID}
		c, ok := cells[k]
		if !ok {
			c = &cell{date: a.Date}
			cells[k] = c
			order = append(order, k)
		}
		if !slices.Contains(c.rooms, a.RoomID) {
			c.rooms = append(c.rooms, a.RoomID)
		}
	}
	sortRoomSlotKeys(order)

	var findings []Finding
	for _, k := range order {
		c := cells[k]
		if len(c.rooms) < 2 {
			continue
		}
		slices.Sort(c.rooms)
		findings = append(findings, Finding{
			RuleID:   IDStaffDoubleBooking,
			Severity: SeverityError,
			Scope:    Scope{Date: c.date, Slot: k.slot, Staff: k.room},
			Key:      "staff.double_booked",
			Payload:  map[string]any{"rooms": c.rooms},
		})
	}
	return findings, nil
}
