// Package output provides styled terminal rendering for plancheck reports.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/plancheck/internal/rules"
)

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for clean reports and improvements.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for error findings and regressions.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for warning findings.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorInfo is used for info findings.
	ColorInfo = lipgloss.Color("#90caf9")

	// ColorOpportunity is used for opportunity findings.
	ColorOpportunity = lipgloss.Color("#ce93d8")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")
)

// Styles provides reusable lipgloss styles.
var (
	StyleHeader      lipgloss.Style
	StyleSuccess     lipgloss.Style
	StyleError       lipgloss.Style
	StyleWarning     lipgloss.Style
	StyleInfo        lipgloss.Style
	StyleOpportunity lipgloss.Style
	StyleMuted       lipgloss.Style
	StyleBold        lipgloss.Style
)

// noColor tracks whether color output is disabled.
var noColor bool

func init() {
	SetNoColor(false)
}

// SetNoColor disables or enables color output globally by rebuilding the
// package-level styles.
func SetNoColor(disabled bool) {
	noColor = disabled
	if disabled {
		plain := lipgloss.NewStyle()
		StyleHeader = plain
		StyleSuccess = plain
		StyleError = plain
		StyleWarning = plain
		StyleInfo = plain
		StyleOpportunity = plain
		StyleMuted = plain
		StyleBold = plain
		return
	}
	StyleHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleOpportunity = lipgloss.NewStyle().Foreground(ColorOpportunity)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold = lipgloss.NewStyle().Bold(true)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// ColorEnabled reports whether output to f should be colored: color must be
// wanted, NO_COLOR unset and f a terminal.
func ColorEnabled(f *os.File, wanted bool) bool {
	if !wanted || os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SeverityStyle returns the style for a severity.
func SeverityStyle(sev rules.Severity) lipgloss.Style {
	switch sev {
	case rules.SeverityError:
		return StyleError
	case rules.SeverityWarning:
		return StyleWarning
	case rules.SeverityInfo:
		return StyleInfo
	case rules.SeverityOpportunity:
		return StyleOpportunity
	default:
		return StyleMuted
	}
}
