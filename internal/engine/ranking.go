package engine

import (
	"slices"
	"strings"

	"github.com/blackwell-systems/plancheck/internal/rules"
)

// ranked is a finding tagged with the sort position of the rule that
// emitted it.
type ranked struct {
	rules.Finding
	order int
	index int
}

// dedupe keeps the first occurrence of every dedup key.
func dedupe(in []ranked) []ranked {
	seen := make(map[string]bool, len(in))
	out := make([]ranked, 0, len(in))
	for _, r := range in {
		k := r.DedupKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// rank sorts findings by severity (most severe first), then date, then rule
// order and registration index, then slot, room, staff and key. Findings
// equal on all of these keep their emission order.
func rank(in []ranked) []rules.Finding {
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, compareRanked)

	out := make([]rules.Finding, len(sorted))
	for i, r := range sorted {
		out[i] = r.Finding
	}
	return out
}

func compareRanked(a, b ranked) int {
	if c := b.Severity.Rank() - a.Severity.Rank(); c != 0 {
		return c
	}
	if c := a.Scope.Date.Compare(b.Scope.Date); c != 0 {
		return c
	}
	if c := a.order - b.order; c != 0 {
		return c
	}
	if c := a.index - b.index; c != 0 {
		return c
	}
	if c := strings.Compare(a.Scope.Slot, b.Scope.Slot); c != 0 {
		return c
	}
	if c := strings.Compare(a.Scope.Room, b.Scope.Room); c != 0 {
		return c
	}
	if c := strings.Compare(a.Scope.Staff, b.Scope.Staff); c != 0 {
		return c
	}
	return strings.Compare(a.Key, b.Key)
}
