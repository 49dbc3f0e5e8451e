// Package styles provides Lip Gloss styles for fspack console output.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Success    = lipgloss.Color("#10B981") // Green
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	MutedLight = lipgloss.Color("#9CA3AF") // Light Gray
	Foreground = lipgloss.Color("#F9FAFB") // White
)

// Header styles.
var (
	// TitleStyle is for section titles such as the distribution name.
	TitleStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Bold(true).
			Padding(0, 1)

	// LabelStyle is for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedLight)

	// ValueStyle is for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// Status icons.
var (
	// StatusOK marks a found library or a written file.
	StatusOK = lipgloss.NewStyle().
			Foreground(Success).
			Render("✓")

	// StatusWarning marks something that needs attention but did not fail.
	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Render("!")

	// StatusFailed marks a missing library or a failed step.
	StatusFailed = lipgloss.NewStyle().
			Foreground(Error).
			Render("✗")
)

// Text styles.
var (
	// MutedTextStyle is for de-emphasized text.
	MutedTextStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// ErrorTextStyle is for error messages.
	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(Error)

	// SuccessTextStyle is for success messages.
	SuccessTextStyle = lipgloss.NewStyle().
				Foreground(Success)

	// WarningTextStyle is for warning messages.
	WarningTextStyle = lipgloss.NewStyle().
				Foreground(Warning)
)

// Status returns the icon for ok.
func Status(ok bool) string {
	if ok {
		return StatusOK
	}
	return StatusFailed
}

// Field renders a "label: value" pair.
func Field(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value)
}
