package rules

import (
	"slices"
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// ProphylaxeMissing checks the weekly prophylaxis cadence: every ISO week
// that contains an open day needs at least min_per_week prophylaxis
// assignments. The severity is configurable because practices weigh a
// missed cadence differently.
type ProphylaxeMissing struct{}

// ID implements Rule.
func (ProphylaxeMissing) ID() string { return IDProphylaxeMissing }

// Evaluate implements Rule.
func (ProphylaxeMissing) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	role := in.Params.String("role", nonEmpty)
	minPerWeek := in.Params.Int("min_per_week", intAtLeast(0))
	severity := Severity(in.Params.String("severity", validSeverity))

	counts := make(map[string]int)
	var weeks []time.Time
	for _, day := range s.OpenDays() {
		ws := plan.WeekStart(day)
		k := dateKey(ws)
		if _, ok := counts[k]; !ok {
			counts[k] = 0
			weeks = append(weeks, ws)
		}
	}
	for _, a := range s.Assignments {
		if a.Role == role {
			counts[dateKey(plan.WeekStart(a.Date))]++
		}
	}

	var findings []Finding
	for _, ws := range weeks {
		assigned := counts[dateKey(ws)]
		if assigned >= minPerWeek {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   IDProphylaxeMissing,
			Severity: severity,
			Scope:    Scope{Date: clampStart(ws, s)},
			Key:      "prophylaxe.missing",
			Payload: map[string]any{
				"week":     isoWeekLabel(ws),
				"required": minPerWeek,
				"assigned": assigned,
			},
		})
	}
	return findings, nil
}

// ProphylaxeOpportunity reports prophylaxis-capable rooms left partly empty
// in slots the practice is open. It never reports a problem, only unused
// capacity.
type ProphylaxeOpportunity struct{}

// ID implements Rule.
func (ProphylaxeOpportunity) ID() string { return IDProphylaxeOpportunity }

// Evaluate implements Rule.
func (ProphylaxeOpportunity) Evaluate(in *Input) ([]Finding, error) {
	s := in.Snapshot
	role := in.Params.String("role", nonEmpty)
	minFree := in.Params.Int("min_free", intAtLeast(1))

	var rooms []string
	for _, c := range s.Capacities {
		if c.Role == role && !slices.Contains(rooms, c.RoomID) {
			rooms = append(rooms, c.RoomID)
		}
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	slices.Sort(rooms)

	byDate := s.ByDate()
	var findings []Finding
	for _, day := range s.OpenDays() {
		assignments := byDate[dateKey(day)]
		occupied := make(map[[2]string]int)
		for _, a := range assignments {
			if a.Role == role {
				occupied[[2]string{a.Slot, a.RoomID}]++
			}
		}
		for _, slot := range plan.Slots(assignments) {
			for _, room := range rooms {
				limit, ok := s.CapacityFor(room, role, slot)
				if !ok || limit == 0 {
					continue
				}
				used := occupied[[2]string{slot, room}]
				free := limit - used
				if free < minFree {
					continue
				}
				findings = append(findings, Finding{
					RuleID:   IDProphylaxeOpportunity,
					Severity: SeverityOpportunity,
					Scope:    Scope{Date: day, Slot: slot, Room: room},
					Key:      "prophylaxe.opportunity",
					Payload: map[string]any{
						"capacity": limit,
						"assigned": used,
						"free":     free,
					},
				})
			}
		}
	}
	return findings, nil
}
