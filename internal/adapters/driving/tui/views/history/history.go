// Package history provides the audit history view for one document.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// View lists a document's audit entries, newest first.
type View struct {
	ctx            context.Context
	styles         *styles.Styles
	keymap         *keymap.KeyMap
	historyService driving.HistoryService

	document     *domain.DocumentSummary
	entries      []domain.AuditEntry
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

// NewView creates a new history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, historyService driving.HistoryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		historyService: historyService,
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// SetDocument switches the view to doc and loads its history.
func (v *View) SetDocument(doc domain.DocumentSummary) tea.Cmd {
	v.document = &doc
	v.entries = nil
	v.selected = 0
	v.scrollOffset = 0
	v.err = nil
	return v.load()
}

func (v *View) load() tea.Cmd {
	if v.document == nil {
		return nil
	}
	v.loading = true
	ctx, slug, svc := v.ctx, v.document.Slug, v.historyService
	return func() tea.Msg {
		if svc == nil {
			return messages.HistoryLoaded{Slug: slug, Err: fmt.Errorf("history service not available")}
		}
		entries, err := svc.History(ctx, slug, 0)
		return messages.HistoryLoaded{Slug: slug, Entries: entries, Err: err}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.HistoryLoaded:
		if v.document == nil || msg.Slug != v.document.Slug {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			// Entries arrive oldest first; the view lists the newest on top.
			v.entries = make([]domain.AuditEntry, len(msg.Entries))
			for i, e := range msg.Entries {
				v.entries[len(msg.Entries)-1-i] = e
			}
		}
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case key.Matches(msg, v.keymap.Down):
		if v.selected < len(v.entries)-1 {
			v.selected++
			v.adjustScroll()
		}
	case key.Matches(msg, v.keymap.Select):
		if e := v.SelectedEntry(); e != nil {
			entry := *e
			return v, func() tea.Msg {
				return messages.EntrySelected{Entry: entry}
			}
		}
	case key.Matches(msg, v.keymap.Reload):
		return v, v.load()
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	case key.Matches(msg, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-8, 1)
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder

	if v.document == nil {
		b.WriteString(v.styles.Muted.Render("No document selected."))
		return b.String()
	}

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("History - %s", v.document.Slug)))
	if v.document.Subject != "" {
		b.WriteString(v.styles.Muted.Render("  " + v.document.Subject))
	}
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		return b.String()
	case v.loading && len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("Loading history..."))
		return b.String()
	case len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("No audit entries."))
		return b.String()
	}

	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.entries))
	for i := v.scrollOffset; i < end; i++ {
		e := v.entries[i]
		summary := domain.Summarize(e.Changes)
		line := fmt.Sprintf("v%-4d %-6s %s  %-12s %-10s %s",
			e.After, e.Kind, e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Author, summary, e.Reason)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(v.entries) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, end, len(v.entries))))
		b.WriteString("\n")
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Document returns the document whose history is shown.
func (v *View) Document() *domain.DocumentSummary {
	return v.document
}

// Entries returns the loaded entries, newest first.
func (v *View) Entries() []domain.AuditEntry {
	return v.entries
}

// SelectedEntry returns the currently selected entry.
func (v *View) SelectedEntry() *domain.AuditEntry {
	if v.selected < len(v.entries) {
		return &v.entries[v.selected]
	}
	return nil
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}
