// Package version provides the scrollable view of one document version.
package version

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// View shows a snapshot together with the changes its audit entry records.
type View struct {
	ctx             context.Context
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	viewport        viewport.Model

	entry   *domain.AuditEntry
	version *domain.Version
	loading bool
	err     error
}

// NewView creates a new version view.
func NewView(s *styles.Styles, km *keymap.KeyMap, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		ctx:             context.Background(),
		styles:          s,
		keymap:          km,
		documentService: documentService,
		viewport:        viewport.New(80, 20),
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// SetEntry switches the view to the version entry produced and loads it.
func (v *View) SetEntry(entry domain.AuditEntry) tea.Cmd {
	v.entry = &entry
	v.version = nil
	v.err = nil
	v.loading = true
	v.viewport.SetContent("")
	v.viewport.GotoTop()

	ctx, svc := v.ctx, v.documentService
	return func() tea.Msg {
		if svc == nil {
			return messages.VersionLoaded{Err: fmt.Errorf("document service not available")}
		}
		ver, err := svc.Get(ctx, entry.Slug, entry.After)
		return messages.VersionLoaded{Version: ver, Changes: entry.Changes, Err: err}
	}
}

// Update handles messages for the version view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Back):
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewHistory}
			}
		case key.Matches(msg, v.keymap.Quit):
			return v, func() tea.Msg { return messages.Quit{} }
		}
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case messages.VersionLoaded:
		if v.entry == nil || (msg.Version != nil &&
			(msg.Version.Slug != v.entry.Slug || msg.Version.Number != v.entry.After)) {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.version = msg.Version
			v.viewport.SetContent(v.render(msg.Version, msg.Changes))
		}
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
	}
	return v, nil
}

// render builds the scrollable body: metadata, changes, then points.
func (v *View) render(ver *domain.Version, changes []domain.Change) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render("subject: "), ver.Document.Subject)
	fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render("author:  "), ver.Author)
	fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render("reason:  "), ver.Reason)
	fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render("created: "),
		ver.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render("checksum:"), ver.Checksum)
	if v.entry != nil && len(v.entry.Metadata) > 0 {
		for _, k := range slices.Sorted(maps.Keys(v.entry.Metadata)) {
			fmt.Fprintf(&b, "%s %s=%s\n", v.styles.Muted.Render("meta:    "), k, v.entry.Metadata[k])
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Changes (%s)", domain.Summarize(changes))))
	b.WriteString("\n")
	for _, c := range changes {
		b.WriteString("  " + v.styles.Change(c) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Points (%d)", len(ver.Document.Points))))
	b.WriteString("\n")
	for _, theme := range ver.Document.Themes() {
		p := ver.Document.Points[theme]
		fmt.Fprintf(&b, "  %s  %s\n", v.styles.Normal.Bold(true).Render(theme),
			v.styles.Muted.Render(fmt.Sprintf("confidence %.2f", p.Confidence)))
		if p.Stance != "" {
			fmt.Fprintf(&b, "    %s\n", p.Stance)
		}
		for _, e := range p.Evidence {
			fmt.Fprintf(&b, "    %s %s\n", v.styles.Muted.Render("evidence"), e)
		}
		if len(p.Sources) > 0 {
			fmt.Fprintf(&b, "    %s %s\n", v.styles.Muted.Render("sources "), strings.Join(p.Sources, ", "))
		}
	}
	return b.String()
}

// View renders the version view.
func (v *View) View() string {
	var b strings.Builder

	if v.entry == nil {
		return v.styles.Muted.Render("No version selected.")
	}

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("%s v%d", v.entry.Slug, v.entry.After)))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading version..."))
	default:
		b.WriteString(v.viewport.View())
	}
	return b.String()
}

// SetDimensions sizes the scrollable area below the title and above the
// status bar.
func (v *View) SetDimensions(width, height int) {
	v.viewport.Width = width
	v.viewport.Height = max(height-4, 1)
}

// Version returns the loaded version.
func (v *View) Version() *domain.Version {
	return v.version
}

// Entry returns the audit entry being shown.
func (v *View) Entry() *domain.AuditEntry {
	return v.entry
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}
