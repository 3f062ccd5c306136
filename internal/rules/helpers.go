package rules

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/plan"
)

func roleSet(roles []string) map[string]bool {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// matchesDays reports whether a day category admits the given fact.
func matchesDays(days string, f calendar.Fact) bool {
	switch days {
	case plan.DaysAll:
		return true
	case plan.DaysWeekday:
		return f.IsWeekday()
	case plan.DaysSaturday:
		return f.IsSaturday()
	case plan.DaysSchoolHoliday:
		return f.IsSchoolHoliday
	default:
		return false
	}
}

func validDays(days string) bool {
	switch days {
	case plan.DaysAll, plan.DaysWeekday, plan.DaysSaturday, plan.DaysSchoolHoliday:
		return true
	}
	return false
}

func validSeverity(s string) bool {
	return Severity(s).Valid()
}

// isoWeekLabel renders the ISO week of t, e.g. "2024-W10".
func isoWeekLabel(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// clampStart returns the later of a week start and the snapshot start, so
// week-scoped findings never point before the evaluated range.
func clampStart(weekStart time.Time, s *plan.Snapshot) time.Time {
	if weekStart.Before(s.Start) {
		return s.Start
	}
	return weekStart
}

// slotKey groups assignments sharing a date and slot.
type slotKey struct {
	date string
	slot string
}

// roomSlotKey groups assignments sharing a date, slot and room.
type roomSlotKey struct {
	date string
	slot string
	room string
}

func dateKey(t time.Time) string {
	return plan.DateKey(t)
}

// sortSlotKeys orders keys by date, then slot.
func sortSlotKeys(keys []slotKey) {
	slices.SortFunc(keys, func(a, b slotKey) int {
		if c := strings.Compare(a.date, b.date); c != 0 {
			return c
		}
		return strings.Compare(a.slot, b.slot)
	})
}

// sortRoomSlotKeys orders keys by date, then slot, then room.
func sortRoomSlotKeys(keys []roomSlotKey) {
	slices.SortFunc(keys, func(a, b roomSlotKey) int {
		if c := strings.Compare(a.date, b.date); c != 0 {
			return c
		}
		if c := strings.Compare(a.slot, b.slot); c != 0 {
			return c
		}
		return strings.Compare(a.room, b.room)
	})
}
