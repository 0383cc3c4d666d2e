// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady   State = "ready"
	StateLoading State = "loading"
	StateError   State = "error"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	bindings []key.Binding
	state    State
	message  string
	count    int
	noun     string
	width    int
}

// NewBar creates a new status bar showing the list bindings of km.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:   s,
		bindings: km.ListHelp(),
		state:    StateReady,
		width:    80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)

	return b.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateLoading:
		return b.styles.Muted.Render("Loading...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateReady:
	}
	if b.message != "" {
		return b.styles.Normal.Render(b.message)
	}
	if b.noun != "" {
		return b.styles.Normal.Render(fmt.Sprintf("%d %s", b.count, b.noun))
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.bindings))
	for _, binding := range b.bindings {
		h := binding.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	return b.styles.Help.Render(strings.Join(hints, " · "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets a message shown instead of the count.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetCount shows n items, e.g. "3 versions".
func (b *Bar) SetCount(n int, noun string) {
	b.count = n
	b.noun = noun
}

// Count returns the current item count.
func (b *Bar) Count() int {
	return b.count
}

// SetBindings replaces the keybinding hints.
func (b *Bar) SetBindings(bindings []key.Binding) {
	b.bindings = bindings
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets the status bar to its ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.count = 0
	b.noun = ""
}
