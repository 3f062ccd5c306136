package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// RenderOptions controls report rendering.
type RenderOptions struct {
	// Floor hides findings below this severity. Empty shows everything.
	Floor rules.Severity
	// Width is the terminal width used for rules and bars.
	Width int
}

// RenderReport writes a human-readable report: a header, a severity bar
// and one table row per finding in report order.
func RenderReport(w io.Writer, r *engine.Report, opts RenderOptions) error {
	if r == nil {
		_, err := fmt.Fprintln(w, StyleMuted.Render("no report yet"))
		return err
	}
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	floor := opts.Floor
	if !floor.Valid() {
		floor = rules.SeverityOpportunity
	}

	title := fmt.Sprintf("Plan %s – %s", plan.DateKey(r.Start), plan.DateKey(r.End))
	if _, err := fmt.Fprintln(w, Section(title, width-2)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, " %s\n\n", SeverityBar(r.Summary, min(24, width/4))); err != nil {
		return err
	}

	findings := r.Filter(floor)
	if len(findings) == 0 {
		msg := StyleSuccess.Render("Nothing to report.")
		if hidden := len(r.Findings); hidden > 0 {
			msg = StyleMuted.Render(fmt.Sprintf("%d finding(s) below %s hidden.", hidden, floor))
		}
		_, err := fmt.Fprintf(w, " %s\n", msg)
		return err
	}

	tbl := NewTable("Severity", "Date", "Where", "Rule", "Message")
	for _, f := range findings {
		tbl.AddRow(
			SeverityStyle(f.Severity).Render(string(f.Severity)),
			f.Scope.Date.Format("Mon 2006-01-02"),
			Where(f.Scope),
			StyleMuted.Render(f.RuleID),
			Message(f),
		)
	}
	if err := tbl.Fprint(w); err != nil {
		return err
	}

	if hidden := len(r.Findings) - len(findings); hidden > 0 {
		_, err := fmt.Fprintf(w, "\n %s\n", StyleMuted.Render(fmt.Sprintf("%d finding(s) below %s hidden.", hidden, floor)))
		return err
	}
	return nil
}

// Where renders the optional parts of a scope as "slot room staff", or a
// dash when the finding applies to the whole day.
func Where(s rules.Scope) string {
	var parts []string
	if s.Slot != "" {
		parts = append(parts, s.Slot)
	}
	if s.Room != "" {
		parts = append(parts, "room "+s.Room)
	}
	if s.Staff != "" {
		parts = append(parts, s.Staff)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
