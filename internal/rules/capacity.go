package rules

import (
	"maps"
	"slices"
	"time"
)

// RoomCapacity flags room/slot combinations where more people of a role
// are scheduled than the room allows. Rooms without a capacity entry for a
// role allow default_max people of that role; a default_max of 0 leaves
// them unconstrained.
type RoomCapacity struct{}

// ID implements Rule.
func (RoomCapacity) ID() string { return IDRoomCapacity }

// Evaluate implements Rule.
func (RoomCapacity) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	defaultMax := in.Params.Int("default_max", intAtLeast(0))

	type cell struct {
		date  time.Time
		roles map[string]int
	}
	cells := make(map[roomSlotKey]*cell)
	var order []roomSlotKey
	for _, a := range s.Assignments {
		if a.RoomID == "" {
			continue
		}
		k := roomSlotKey{date: dateKey(a.Date), slot: a.Slot, room: a.RoomID}
		c, ok := cells[k]
		if !ok {
			c = &cell{date: a.Date, roles: make(map[string]int)}
			cells[k] = c
			order = append(order, k)
		}
		c.roles[a.Role]++
	}
	sortRoomSlotKeys(order)

	var findings []Finding
	for _, k := range order {
		c := cells[k]
		var exceeded []any
		for _, role := range slices.Sorted(maps.Keys(c.roles)) {
			limit, ok := s.CapacityFor(k.room, role, k.slot)
			if !ok {
				if defaultMax == 0 {
					continue
				}
				limit = defaultMax
			}
			if c.roles[role] <= limit {
				continue
			}
			exceeded = append(exceeded, map[string]any{
				"role":      role,
				"occupants": c.roles[role],
				"max":       limit,
			})
		}
		if len(exceeded) == 0 {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   IDRoomCapacity,
			Severity: SeverityError,
			Scope:    Scope{Date: c.date, Slot: k.slot, Room: k.room},
			Key:      "room_capacity.exceeded",
			Payload:  map[string]any{"exceeded": exceeded},
		})
	}
	return findings, nil
}
