// Package plan provides the immutable plan snapshot evaluated by the rule
// engine: staff assignments over a date range plus the contracts, room
// capacities and coverage requirements needed to interpret them.
package plan

import "time"

// Assignment places one staff member in a room and role for one slot of a day.
type Assignment struct {
	Date    time.Time `yaml:"date" json:"date"`
	Slot    string    `yaml:"slot" json:"slot" validate:"required"`
	RoomID  string    `yaml:"room" json:"room,omitempty"`
	StaffID string    `yaml:"staff" json:"staff" validate:"required"`
	Role    string    `yaml:"role" json:"role" validate:"required"`

	// Hours is the length of the assignment. Zero means the configured
	// default slot length applies.
	Hours float64 `yaml:"hours,omitempty" json:"hours,omitempty" validate:"gte=0,lte=24"`
}

// StaffContract describes the contracted weekly hours of a staff member for
// a validity range. A zero ValidTo means the contract is open-ended.
type StaffContract struct {
	StaffID     string    `yaml:"staff" json:"staff" validate:"required"`
	WeeklyHours float64   `yaml:"weekly_hours" json:"weekly_hours" validate:"gte=0,lte=80"`
	ValidFrom   time.Time `yaml:"valid_from" json:"valid_from"`
	ValidTo     time.Time `yaml:"valid_to,omitempty" json:"valid_to,omitempty"`
	Roles       []string  `yaml:"roles,omitempty" json:"roles,omitempty"`
}

// RoomCapacity caps the number of concurrent occupants of a role in a room.
// An empty Slot applies to every slot without a more specific entry.
type RoomCapacity struct {
	RoomID string `yaml:"room" json:"room" validate:"required"`
	Role   string `yaml:"role" json:"role" validate:"required"`
	Slot   string `yaml:"slot,omitempty" json:"slot,omitempty"`
	Max    int    `yaml:"max" json:"max" validate:"gte=0"`
}

// Day categories a CoverageRequirement can be restricted to.
const (
	DaysAll           = ""
	DaysWeekday       = "weekday"
	DaysSaturday      = "saturday"
	DaysSchoolHoliday = "schoolholiday"
)

// CoverageRequirement is the minimum number of staff in Role for a named
// functional area. An empty Slot means every slot in use that day.
type CoverageRequirement struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Role string `yaml:"role" json:"role" validate:"required"`
	Slot string `yaml:"slot,omitempty" json:"slot,omitempty"`
	Days string `yaml:"days,omitempty" json:"days,omitempty" validate:"omitempty,oneof=weekday saturday schoolholiday"`
	Min  int    `yaml:"min" json:"min" validate:"gte=0"`
}

// Snapshot is a point-in-time view of a plan. A Snapshot must not be
// modified once built; every edit produces a new Snapshot.
type Snapshot struct {
	Start        time.Time             `yaml:"start" json:"start"`
	End          time.Time             `yaml:"end" json:"end"`
	Assignments  []Assignment          `yaml:"assignments" json:"assignments" validate:"dive"`
	Contracts    []StaffContract       `yaml:"contracts,omitempty" json:"contracts,omitempty" validate:"dive"`
	Capacities   []RoomCapacity        `yaml:"capacities,omitempty" json:"capacities,omitempty" validate:"dive"`
	Requirements []CoverageRequirement `yaml:"requirements,omitempty" json:"requirements,omitempty" validate:"dive"`
}
