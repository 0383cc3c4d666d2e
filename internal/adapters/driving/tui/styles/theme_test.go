package styles

import (
	"encoding/json"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.NotEmpty(t, string(theme.Accent))
	assert.NotEmpty(t, string(theme.Secondary))
	assert.NotEmpty(t, string(theme.Foreground))
	assert.NotEmpty(t, string(theme.Muted))
	assert.NotEmpty(t, string(theme.Border))
}

func TestDefaultTheme_ChangeColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Add, theme.Remove, theme.Replace, theme.Accent} {
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestNewStyles(t *testing.T) {
	theme := DefaultTheme()

	assert.Equal(t, theme, NewStyles(theme).Theme())
	assert.NotNil(t, NewStyles(nil).Theme())
}

func TestStyles_Change(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		name   string
		change domain.Change
		want   string
	}{
		{
			name:   "add",
			change: domain.Change{Path: "points/space", Op: domain.ChangeAdd, NewValue: json.RawMessage(`{}`)},
			want:   "+ points/space",
		},
		{
			name:   "remove",
			change: domain.Change{Path: "points/space", Op: domain.ChangeRemove, OldValue: json.RawMessage(`{}`)},
			want:   "- points/space",
		},
		{
			name: "replace",
			change: domain.Change{
				Path: "subject", Op: domain.ChangeReplace,
				OldValue: json.RawMessage(`"a"`), NewValue: json.RawMessage(`"b"`),
			},
			want: `~ subject: "a" -> "b"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, s.Change(tt.change), tt.want)
		})
	}
}
