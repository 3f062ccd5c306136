package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/blackwell-systems/plancheck/internal/rules"
)

// payload reads finding payload values leniently. Reports loaded back from
// JSON or the history store carry float64 numbers and []any lists.
type payload map[string]any

func (p payload) str(key string) string  { return cast.ToString(p[key]) }
func (p payload) num(key string) int     { return cast.ToInt(p[key]) }
func (p payload) dec(key string) float64 { return cast.ToFloat64(p[key]) }

func (p payload) list(key string) string {
	items := cast.ToStringSlice(p[key])
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func (p payload) records(key string) []payload {
	raw := cast.ToSlice(p[key])
	out := make([]payload, 0, len(raw))
	for _, r := range raw {
		if m, err := cast.ToStringMapE(r); err == nil {
			out = append(out, payload(m))
		}
	}
	return out
}

type template func(p payload) string

// messages is the English catalog keyed by finding key.
var messages = map[string]template{
	"plan.empty": func(p payload) string {
		return fmt.Sprintf("no assignments between %s and %s", p.str("start"), p.str("end"))
	},
	"room_capacity.exceeded": func(p payload) string {
		var parts []string
		for _, r := range p.records("exceeded") {
			parts = append(parts, fmt.Sprintf("%d %s for %d places", r.num("occupants"), r.str("role"), r.num("max")))
		}
		return "room over capacity: " + strings.Join(parts, "; ")
	},
	"coverage.unmet": func(p payload) string {
		var parts []string
		for _, r := range p.records("unmet") {
			name := r.str("requirement")
			if name == "" {
				name = r.str("role")
			}
			parts = append(parts, fmt.Sprintf("%s needs %d %s, has %d", name, r.num("required"), r.str("role"), r.num("assigned")))
		}
		return "coverage short: " + strings.Join(parts, "; ")
	},
	"assist.missing": func(p payload) string {
		return fmt.Sprintf("%d assistant(s) for doctor(s) %s, %d required",
			p.num("assistants"), p.list("doctors"), p.num("required"))
	},
	"itn.uncovered": func(p payload) string {
		return fmt.Sprintf("%s needs %d staff, has %d", strings.ToUpper(p.str("role")), p.num("required"), p.num("assigned"))
	},
	"itn.unqualified": func(p payload) string {
		return fmt.Sprintf("staff member is not qualified for %s", strings.ToUpper(p.str("role")))
	},
	"prophylaxe.missing": func(p payload) string {
		return fmt.Sprintf("week %s has %d prophylaxis appointment(s), %d required", p.str("week"), p.num("assigned"), p.num("required"))
	},
	"prophylaxe.opportunity": func(p payload) string {
		return fmt.Sprintf("%d free prophylaxis place(s) (%d of %d used)", p.num("free"), p.num("assigned"), p.num("capacity"))
	},
	"saturday_compensation.missing": func(p payload) string {
		return fmt.Sprintf("Saturday shift has no compensation day within %d days (by %s)", p.num("window_days"), p.str("deadline"))
	},
	"saturday_compensation.pending": func(p payload) string {
		return fmt.Sprintf("compensation day still open, due by %s", p.str("deadline"))
	},
	"contract_hours.over": func(p payload) string {
		return fmt.Sprintf("week %s: %.2fh scheduled, %.2fh contracted (+%.2fh)", p.str("week"), p.dec("scheduled"), p.dec("expected"), p.dec("delta"))
	},
	"contract_hours.under": func(p payload) string {
		return fmt.Sprintf("week %s: %.2fh scheduled, %.2fh contracted (%.2fh)", p.str("week"), p.dec("scheduled"), p.dec("expected"), p.dec("delta"))
	},
	"schoolholiday.overstaffed": func(p payload) string {
		return fmt.Sprintf("%d staff during %s, limit %d (usual %.2f)", p.num("headcount"), p.str("holiday"), p.num("limit"), p.dec("baseline"))
	},
	"public_holiday.assigned": func(p payload) string {
		return fmt.Sprintf("assigned as %s on %s", p.str("role"), p.str("holiday"))
	},
	"staff.double_booked": func(p payload) string {
		return fmt.Sprintf("booked in several rooms at once: %s", p.list("rooms"))
	},
	"contract.missing": func(payload) string {
		return "works without an active contract"
	},
	"contract.role": func(p payload) string {
		return fmt.Sprintf("role %s is outside the contract (%s)", p.str("role"), p.list("allowed"))
	},
	"rule.failed": func(p payload) string {
		return "rule could not be evaluated: " + p.str("error")
	},
	"config.fallback": func(p payload) string {
		var parts []string
		for _, r := range p.records("params") {
			parts = append(parts, fmt.Sprintf("%s=%v (%s)", r.str("param"), r["value"], r.str("reason")))
		}
		return "invalid parameters replaced by defaults: " + strings.Join(parts, "; ")
	},
	"snapshot.invalid": func(p payload) string {
		return "plan cannot be checked: " + p.str("reason")
	},
	"calendar.unresolved": func(p payload) string {
		if d := p.str("date"); d != "" {
			return fmt.Sprintf("calendar unavailable for %s: %s", d, p.str("error"))
		}
		return "calendar unavailable: " + p.str("error")
	},
	"source.unavailable": func(p payload) string {
		return "plan could not be loaded: " + p.str("error")
	},
}

// Message renders a finding as an English sentence. Unknown keys fall back
// to the key followed by the payload in key order.
func Message(f rules.Finding) string {
	if tmpl, ok := messages[f.Key]; ok {
		return tmpl(payload(f.Payload))
	}
	if len(f.Payload) == 0 {
		return f.Key
	}
	keys := make([]string, 0, len(f.Payload))
	for k := range f.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, f.Payload[k])
	}
	return f.Key + " (" + strings.Join(parts, ", ") + ")"
}

// HasMessage reports whether key has a catalog entry.
func HasMessage(key string) bool {
	_, ok := messages[key]
	return ok
}
