// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// Theme defines the colour palette for the TUI.
type Theme struct {
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color

	// Add, Remove and Replace colour change operations.
	Add     lipgloss.Color
	Remove  lipgloss.Color
	Replace lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:     lipgloss.Color("#7C3AED"),
		Secondary:  lipgloss.Color("#06B6D4"),
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Border:     lipgloss.Color("#45475A"),
		Add:        lipgloss.Color("#A6E3A1"),
		Remove:     lipgloss.Color("#F38BA8"),
		Replace:    lipgloss.Color("#F9E2AF"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	// Add, Remove and Replace render change lines.
	Add     lipgloss.Style
	Remove  lipgloss.Style
	Replace lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Accent),

		Error: lipgloss.NewStyle().
			Foreground(theme.Remove),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#181825")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Add:     lipgloss.NewStyle().Foreground(theme.Add),
		Remove:  lipgloss.NewStyle().Foreground(theme.Remove),
		Replace: lipgloss.NewStyle().Foreground(theme.Replace),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Change renders a change on one line in the colour of its operation.
func (s *Styles) Change(c domain.Change) string {
	switch c.Op {
	case domain.ChangeAdd:
		return s.Add.Render(c.String())
	case domain.ChangeRemove:
		return s.Remove.Render(c.String())
	default:
		return s.Replace.Render(c.String())
	}
}
