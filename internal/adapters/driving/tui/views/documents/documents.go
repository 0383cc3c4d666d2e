// Package documents provides the document list view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// View lists stored documents and searches them by subject or theme.
type View struct {
	ctx             context.Context
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	filter          *input.FilterInput

	documents    []domain.DocumentSummary
	query        string
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

// NewView creates a new documents view.
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
		filter:          input.NewFilterInput(s),
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	return v.load()
}

// load returns a command that lists documents, or searches them when a
// query is set.
func (v *View) load() tea.Cmd {
	v.loading = true
	ctx, query, svc := v.ctx, v.query, v.documentService
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Query: query, Err: fmt.Errorf("document service not available")}
		}
		var (
			docs []domain.DocumentSummary
			err  error
		)
		if query == "" {
			docs, err = svc.List(ctx)
		} else {
			docs, err = svc.Search(ctx, query)
		}
		return messages.DocumentsLoaded{Query: query, Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.filter.Focused() {
			return v.handleFilterKey(msg)
		}
		return v.handleKey(msg)

	case messages.DocumentsLoaded:
		// A response to a superseded query is dropped.
		if msg.Query != v.query {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.selected = min(v.selected, max(len(v.documents)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil
	}

	if v.filter.Focused() {
		var cmd tea.Cmd
		v.filter, cmd = v.filter.Update(msg)
		return v, cmd
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
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case key.Matches(msg, v.keymap.Select):
		if doc := v.SelectedDocument(); doc != nil {
			selected := *doc
			return v, func() tea.Msg {
				return messages.DocumentSelected{Document: selected}
			}
		}
	case key.Matches(msg, v.keymap.Filter):
		return v, v.filter.Focus()
	case key.Matches(msg, v.keymap.Reload):
		return v, v.load()
	case key.Matches(msg, v.keymap.Back):
		if v.query != "" {
			v.query = ""
			v.filter.Reset()
			v.selected = 0
			return v, v.load()
		}
	case key.Matches(msg, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

func (v *View) handleFilterKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		v.filter.Blur()
		v.query = strings.TrimSpace(v.filter.Value())
		v.selected = 0
		v.scrollOffset = 0
		return v, v.load()
	case tea.KeyEsc:
		v.filter.Blur()
		v.filter.SetValue(v.query)
		return v, nil
	}
	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	return v, cmd
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

// visibleItemCount reserves lines for the title, input, header and status bar.
func (v *View) visibleItemCount() int {
	return max(v.height-10, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Documents (%d)", len(v.documents))
	if v.query != "" {
		title = fmt.Sprintf("Documents matching %q (%d)", v.query, len(v.documents))
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(v.filter.View())
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.loading && len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case len(v.documents) == 0 && v.query != "":
		b.WriteString(v.styles.Muted.Render("No documents match."))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents stored yet."))
	default:
		v.renderList(&b)
	}
	return b.String()
}

func (v *View) renderList(b *strings.Builder) {
	slugWidth := 6
	for _, d := range v.documents {
		slugWidth = max(slugWidth, len(d.Slug))
	}
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %-*s  %4s  %6s  %-19s  %s",
		slugWidth, "SLUG", "HEAD", "POINTS", "UPDATED", "SUBJECT")))
	b.WriteString("\n")

	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.documents))
	for i := v.scrollOffset; i < end; i++ {
		d := v.documents[i]
		line := fmt.Sprintf("%-*s  %4d  %6d  %-19s  %s",
			slugWidth, d.Slug, d.Head, d.PointCount,
			d.UpdatedAt.Local().Format("2006-01-02 15:04:05"), d.Subject)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(v.documents) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, end, len(v.documents))))
		b.WriteString("\n")
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.filter.SetWidth(width)
	v.adjustScroll()
}

// Documents returns the documents currently listed.
func (v *View) Documents() []domain.DocumentSummary {
	return v.documents
}

// Query returns the active search query.
func (v *View) Query() string {
	return v.query
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.DocumentSummary {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// Filtering reports whether the search input has focus.
func (v *View) Filtering() bool {
	return v.filter.Focused()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}
