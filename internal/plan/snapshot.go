package plan

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/zeebo/blake3"
)

// New builds a Snapshot over [start, end] from copies of the given
// assignments. Dates are normalized to midnight UTC.
func New(start, end time.Time, assignments []Assignment) *Snapshot {
	s := &Snapshot{
		Start:       Normalize(start),
		End:         Normalize(end),
		Assignments: make([]Assignment, len(assignments)),
	}
	for i, a := range assignments {
		a.Date = Normalize(a.Date)
		s.Assignments[i] = a
	}
	return s
}

// With returns a copy of s carrying the given configuration tables.
func (s *Snapshot) With(contracts []StaffContract, capacities []RoomCapacity, requirements []CoverageRequirement) *Snapshot {
	c := s.Clone()
	c.Contracts = slices.Clone(contracts)
	c.Capacities = slices.Clone(capacities)
	c.Requirements = slices.Clone(requirements)
	c.normalize()
	return c
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Start:        s.Start,
		End:          s.End,
		Assignments:  slices.Clone(s.Assignments),
		Capacities:   slices.Clone(s.Capacities),
		Requirements: slices.Clone(s.Requirements),
	}
	c.Contracts = make([]StaffContract, len(s.Contracts))
	for i, ct := range s.Contracts {
		ct.Roles = slices.Clone(ct.Roles)
		c.Contracts[i] = ct
	}
	return c
}

// normalize strips clocks from every date in place. Only called on a
// Snapshot that has not been handed out yet.
func (s *Snapshot) normalize() {
	s.Start = Normalize(s.Start)
	s.End = Normalize(s.End)
	for i := range s.Assignments {
		s.Assignments[i].Date = Normalize(s.Assignments[i].Date)
	}
	for i := range s.Contracts {
		s.Contracts[i].ValidFrom = Normalize(s.Contracts[i].ValidFrom)
		s.Contracts[i].ValidTo = Normalize(s.Contracts[i].ValidTo)
	}
}

// Contains reports whether date lies in the snapshot range.
func (s *Snapshot) Contains(date time.Time) bool {
	date = Normalize(date)
	return !date.Before(s.Start) && !date.After(s.End)
}

// IsEmpty reports whether the snapshot holds no assignments.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Assignments) == 0
}

// ByDate groups assignments by date key, preserving plan order.
func (s *Snapshot) ByDate() map[string][]Assignment {
	out := make(map[string][]Assignment)
	for _, a := range s.Assignments {
		k := DateKey(a.Date)
		out[k] = append(out[k], a)
	}
	return out
}

// OpenDays returns the dates that carry at least one assignment, ascending.
func (s *Snapshot) OpenDays() []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, a := range s.Assignments {
		k := DateKey(a.Date)
		if !seen[k] {
			seen[k] = true
			days = append(days, a.Date)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Slots returns the distinct slots used by the given assignments, sorted.
func Slots(assignments []Assignment) []string {
	seen := make(map[string]bool)
	var slots []string
	for _, a := range assignments {
		if !seen[a.Slot] {
			seen[a.Slot] = true
			slots = append(slots, a.Slot)
		}
	}
	sort.Strings(slots)
	return slots
}

// ContractFor returns the contract of staffID active on date.
func (s *Snapshot) ContractFor(staffID string, date time.Time) (StaffContract, bool) {
	date = Normalize(date)
	for _, c := range s.Contracts {
		if c.StaffID == staffID && c.Active(date) {
			return c, true
		}
	}
	return StaffContract{}, false
}

// Active reports whether the contract covers date.
func (c StaffContract) Active(date time.Time) bool {
	if !c.ValidFrom.IsZero() && date.Before(c.ValidFrom) {
		return false
	}
	if !c.ValidTo.IsZero() && date.After(c.ValidTo) {
		return false
	}
	return true
}

// AllowsRole reports whether the contract permits role. An empty role set
// permits every role.
func (c StaffContract) AllowsRole(role string) bool {
	return len(c.Roles) == 0 || slices.Contains(c.Roles, role)
}

// CapacityFor returns the capacity of room for role in slot. An entry for
// the exact slot wins over a slot-less entry.
func (s *Snapshot) CapacityFor(roomID, role, slot string) (int, bool) {
	limit, found := 0, false
	for _, c := range s.Capacities {
		if c.RoomID != roomID || c.Role != role {
			continue
		}
		if c.Slot == slot {
			return c.Max, true
		}
		if c.Slot == "" {
			limit, found = c.Max, true
		}
	}
	return limit, found
}

// Digest returns a stable blake3 digest of the snapshot contents.
func (s *Snapshot) Digest() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
