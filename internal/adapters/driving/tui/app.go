package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/views/history"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/views/version"
)

// App is the browser application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	statusBar     *status.Bar
	documentsView *documents.View
	historyView   *history.View
	versionView   *version.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new browser over the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingDocumentService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		statusBar:     status.NewBar(s, km),
		documentsView: documents.NewView(s, km, ports.Document),
		historyView:   history.NewView(s, km, ports.History),
		versionView:   version.NewView(s, km, ports.Document),
		currentView:   messages.ViewDocuments,
	}, nil
}

// WithContext sets the context used for every service call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.documentsView.SetContext(ctx)
	a.historyView.SetContext(ctx)
	a.versionView.SetContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("wve"),
		a.documentsView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		cmd = a.updateCurrent(msg)

	case messages.DocumentsLoaded:
		a.documentsView, cmd = a.documentsView.Update(msg)

	case messages.DocumentSelected:
		a.currentView = messages.ViewHistory
		cmd = a.historyView.SetDocument(msg.Document)

	case messages.HistoryLoaded:
		a.historyView, cmd = a.historyView.Update(msg)

	case messages.EntrySelected:
		a.currentView = messages.ViewVersion
		cmd = a.versionView.SetEntry(msg.Entry)

	case messages.VersionLoaded:
		a.versionView, cmd = a.versionView.Update(msg)

	case messages.ViewChanged:
		a.currentView = msg.View

	case messages.Quit:
		return a, tea.Quit

	default:
		cmd = a.updateCurrent(msg)
	}

	a.refreshStatus()
	return a, cmd
}

// updateCurrent forwards msg to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHistory:
		a.historyView, cmd = a.historyView.Update(msg)
	case messages.ViewVersion:
		a.versionView, cmd = a.versionView.Update(msg)
	}
	return cmd
}

// refreshStatus mirrors the active view's state into the status bar.
func (a *App) refreshStatus() {
	a.statusBar.Clear()

	var (
		err     error
		loading bool
	)
	switch a.currentView {
	case messages.ViewDocuments:
		a.statusBar.SetBindings(a.keymap.DocumentsHelp())
		a.statusBar.SetCount(len(a.documentsView.Documents()), "documents")
		if a.documentsView.Filtering() {
			a.statusBar.SetMessage("enter to search, esc to cancel")
		}
		err, loading = a.documentsView.Err(), a.documentsView.Loading()
	case messages.ViewHistory:
		a.statusBar.SetBindings(a.keymap.ListHelp())
		a.statusBar.SetCount(len(a.historyView.Entries()), "versions")
		err, loading = a.historyView.Err(), a.historyView.Loading()
	case messages.ViewVersion:
		a.statusBar.SetBindings(a.keymap.VersionHelp())
		err, loading = a.versionView.Err(), a.versionView.Loading()
	}

	switch {
	case err != nil:
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(err.Error())
	case loading:
		a.statusBar.SetState(status.StateLoading)
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewHistory:
		body = a.historyView.View()
	case messages.ViewVersion:
		body = a.versionView.View()
	default:
		body = a.documentsView.View()
	}

	// Pin the status bar to the bottom row.
	body = lipgloss.NewStyle().Height(max(a.height-1, 1)).MaxHeight(max(a.height-1, 1)).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusBar.View())
}

// Run starts the browser and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	bodyHeight := max(height-1, 1)
	a.statusBar.SetWidth(width)
	a.documentsView.SetDimensions(width, bodyHeight)
	a.historyView.SetDimensions(width, bodyHeight)
	a.versionView.SetDimensions(width, bodyHeight)
}
