package output

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// SeverityBar renders a stacked bar with one segment per severity, sized by
// its share of the findings.
// Example: "████▓▓▓░░░ 2 errors · 3 warnings · 3 infos".
func SeverityBar(s engine.Summary, width int) string {
	if width <= 0 {
		width = 20
	}
	total := s.Total()
	if total == 0 {
		return StyleSuccess.Render(strings.Repeat("█", width)) + " " + StyleSuccess.Render("no findings")
	}

	glyphs := map[rules.Severity]string{
		rules.SeverityError:       "█",
		rules.SeverityWarning:     "▓",
		rules.SeverityInfo:        "▒",
		rules.SeverityOpportunity: "░",
	}

	var bar strings.Builder
	used := 0
	var parts []string
	for i, sev := range rules.Severities {
		n := s.Count(sev)
		if n == 0 {
			continue
		}
		cells := n * width / total
		if cells == 0 {
			cells = 1
		}
		if i == len(rules.Severities)-1 || used+cells > width {
			cells = max(width-used, 0)
		}
		used += cells
		bar.WriteString(SeverityStyle(sev).Render(strings.Repeat(glyphs[sev], cells)))
		parts = append(parts, SeverityStyle(sev).Render(plural(n, string(sev))))
	}
	if used < width {
		bar.WriteString(strings.Repeat(" ", width-used))
	}

	return fmt.Sprintf("%s %s", bar.String(), strings.Join(parts, StyleMuted.Render(" · ")))
}

// Trend returns a styled indicator for a change in finding count. Fewer
// findings is an improvement.
func Trend(delta int) string {
	switch {
	case delta == 0:
		return StyleMuted.Render("─")
	case delta > 0:
		return StyleError.Render(fmt.Sprintf("▲ +%d", delta))
	default:
		return StyleSuccess.Render(fmt.Sprintf("▼ %d", delta))
	}
}

// Section returns a styled section header with a horizontal rule.
func Section(title string, width int) string {
	if width <= 0 {
		width = 66
	}
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", width))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	if stem, ok := strings.CutSuffix(noun, "y"); ok {
		return fmt.Sprintf("%d %sies", n, stem)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
