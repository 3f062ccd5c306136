package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pgregory.net/rapid"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

var (
	slots = []string{"morning", "afternoon"}
	rooms = []string{"A", "B", "P", ""}
	staff = []string{"d1", "d2", "s1", "s2", "s3", "h1", "r1"}
	roles = []string{"doctor", "assistant", "prophylaxis", "reception", "itn", "comp", "vacation"}
)

func genAssignment() *rapid.Generator[plan.Assignment] {
	return rapid.Custom(func(t *rapid.T) plan.Assignment {
		return plan.Assignment{
			Date:    day(rapid.IntRange(1, 31).Draw(t, "day")),
			Slot:    rapid.SampledFrom(slots).Draw(t, "slot"),
			RoomID:  rapid.SampledFrom(rooms).Draw(t, "room"),
			StaffID: rapid.SampledFrom(staff).Draw(t, "staff"),
			Role:    rapid.SampledFrom(roles).Draw(t, "role"),
		}
	})
}

func genSnapshot() *rapid.Generator[*plan.Snapshot] {
	return rapid.Custom(func(t *rapid.T) *plan.Snapshot {
		assignments := rapid.SliceOfN(genAssignment(), 0, 40).Draw(t, "assignments")
		s := march(assignments...)

		var contracts []plan.StaffContract
		if rapid.Bool().Draw(t, "contracts") {
			contracts = []plan.StaffContract{
				{StaffID: "s1", WeeklyHours: 20},
				{StaffID: "s2", WeeklyHours: 38.5, Roles: []string{"assistant", "comp"}},
			}
		}
		return s.With(contracts,
			[]plan.RoomCapacity{
				{RoomID: "A", Role: "assistant", Max: rapid.IntRange(0, 2).Draw(t, "capA")},
				{RoomID: "P", Role: "prophylaxis", Max: 2},
			},
			[]plan.CoverageRequirement{
				{Name: "frontdesk", Role: "reception", Min: 1},
				{Name: "jva", Role: "assistant", Days: plan.DaysSaturday, Min: 1},
			},
		)
	})
}

var holidays = calendar.NewStatic(
	map[string]string{"2024-03-29": "Good Friday"},
	[]calendar.Period{{Name: "Easter", Start: day(25), End: day(31)}},
)

func mustEvaluate(t *rapid.T, s *plan.Snapshot, reg *rules.Registry) *Report {
	r, err := New().Evaluate(context.Background(), s, holidays, reg)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return r
}

func TestProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := genSnapshot().Draw(t, "snapshot")
		reg := builtinRegistry()

		a, err := json.Marshal(mustEvaluate(t, s, reg))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		b, err := json.Marshal(mustEvaluate(t, s.Clone(), reg))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("reports differ:\n%s\n%s", a, b)
		}
	})
}

func TestProperty_SortedAndUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := mustEvaluate(t, genSnapshot().Draw(t, "snapshot"), builtinRegistry())

		seen := make(map[string]bool)
		for i, f := range r.Findings {
			if seen[f.DedupKey()] {
				t.Fatalf("duplicate finding %s", f.DedupKey())
			}
			seen[f.DedupKey()] = true
			if i == 0 {
				continue
			}
			prev := r.Findings[i-1]
			if prev.Severity.Rank() < f.Severity.Rank() {
				t.Fatalf("finding %d (%s) ranks above its predecessor (%s)", i, f.Severity, prev.Severity)
			}
			if prev.Severity == f.Severity && prev.Scope.Date.After(f.Scope.Date) {
				t.Fatalf("finding %d is dated before its predecessor within %s", i, f.Severity)
			}
		}
		if r.Summary.Total() != len(r.Findings) {
			t.Fatalf("summary total %d != %d findings", r.Summary.Total(), len(r.Findings))
		}
	})
}

func TestProperty_ReversedRegistration(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := genSnapshot().Draw(t, "snapshot")

		reversed := rules.NewRegistry()
		builtin := rules.Builtin()
		for i := len(builtin) - 1; i >= 0; i-- {
			reversed.Register(builtin[i].Rule, builtin[i].Config)
		}

		a := mustEvaluate(t, s, builtinRegistry())
		b := mustEvaluate(t, s, reversed)
		if len(a.Findings) != len(b.Findings) {
			t.Fatalf("finding count differs: %d vs %d", len(a.Findings), len(b.Findings))
		}
		for i := range a.Findings {
			if a.Findings[i].DedupKey() != b.Findings[i].DedupKey() {
				t.Fatalf("finding %d differs: %s vs %s", i, a.Findings[i].DedupKey(), b.Findings[i].DedupKey())
			}
		}
	})
}

func TestProperty_RulesIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := genSnapshot().Draw(t, "snapshot")
		builtin := rules.Builtin()
		target := rapid.SampledFrom(builtin).Draw(t, "rule").Rule.ID()

		only := builtinRegistry()
		for _, d := range only.List() {
			if d.ID != target {
				_ = only.SetEnabled(d.ID, false)
			}
		}

		all := mustEvaluate(t, s, builtinRegistry()).ByRule(target)
		alone := mustEvaluate(t, s, only).ByRule(target)
		if len(all) != len(alone) {
			t.Fatalf("%s: %d findings with all rules, %d alone", target, len(all), len(alone))
		}
		for i := range all {
			if all[i].DedupKey() != alone[i].DedupKey() {
				t.Fatalf("%s: finding %d differs", target, i)
			}
		}
	})
}
