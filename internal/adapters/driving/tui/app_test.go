package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wve/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/core/services"
)

// newTestPorts wires real services over an in-memory store holding two
// versions of alpha.
func newTestPorts(t *testing.T) *Ports {
	t.Helper()
	store := memory.NewVersionStore()
	docs := services.NewDocumentService(store, nil, domain.SaveSettings{MaxAttempts: 3, RetryPerSecond: 1000})

	d := domain.NewDocument("alpha", "Alpha Podcast")
	d.Put(domain.Point{Theme: "economics", Stance: "skeptical", Confidence: 0.6})
	_, err := docs.Save(context.Background(), driving.SaveRequest{Document: d, Author: "tester", Reason: "initial"})
	require.NoError(t, err)
	d.Put(domain.Point{Theme: "climate", Stance: "concerned", Confidence: 0.9})
	_, err = docs.Save(context.Background(), driving.SaveRequest{Document: d, Author: "tester", Reason: "new theme"})
	require.NoError(t, err)

	return &Ports{
		Document: docs,
		History:  services.NewHistoryService(store, nil),
	}
}

// step applies msg and then every browser message its command chain
// produces. Other messages, such as cursor blinks, end the chain.
func step(t *testing.T, app *App, msg tea.Msg) {
	t.Helper()
	for i := 0; i < 10; i++ {
		_, cmd := app.Update(msg)
		if cmd == nil {
			return
		}
		next := cmd()
		switch next.(type) {
		case messages.DocumentsLoaded, messages.DocumentSelected, messages.HistoryLoaded,
			messages.EntrySelected, messages.VersionLoaded, messages.ViewChanged:
			msg = next
		default:
			return
		}
	}
	t.Fatal("command chain did not settle")
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts(t))
	require.NoError(t, err)
	app.SetDimensions(120, 40)
	return app
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(newTestPorts(t))

	require.NoError(t, err)
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})
	assert.ErrorIs(t, err, ErrMissingDocumentService)
	assert.Nil(t, app)

	app, err = NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingDocumentService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, err := NewApp(newTestPorts(t))
	require.NoError(t, err)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Same(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app, err := NewApp(newTestPorts(t))
	require.NoError(t, err)

	assert.NotNil(t, app.Init())
}

func TestApp_ViewBeforeReady(t *testing.T) {
	app, err := NewApp(newTestPorts(t))
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.True(t, app.Ready())
}

func TestApp_BrowseDocumentToVersion(t *testing.T) {
	app := newTestApp(t)

	step(t, app, app.documentsView.Init()())
	require.Len(t, app.documentsView.Documents(), 1)
	assert.Contains(t, app.View(), "Alpha Podcast")
	assert.Contains(t, app.View(), "1 documents")

	step(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, messages.ViewHistory, app.CurrentView())
	require.Len(t, app.historyView.Entries(), 2)
	assert.Contains(t, app.View(), "History - alpha")
	assert.Contains(t, app.View(), "2 versions")

	step(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, messages.ViewVersion, app.CurrentView())
	require.NotNil(t, app.versionView.Version())
	assert.Equal(t, 2, app.versionView.Version().Number)
	assert.Contains(t, app.View(), "alpha v2")

	step(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewHistory, app.CurrentView())

	step(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_StatusShowsErrors(t *testing.T) {
	app := newTestApp(t)

	step(t, app, messages.DocumentSelected{Document: domain.DocumentSummary{Slug: "missing"}})

	assert.Equal(t, messages.ViewHistory, app.CurrentView())
	assert.ErrorIs(t, app.historyView.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "Error:")
}

func TestApp_StatusWhileFiltering(t *testing.T) {
	app := newTestApp(t)

	step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})

	assert.True(t, app.documentsView.Filtering())
	assert.Contains(t, app.View(), "enter to search")
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_ViewChanged(t *testing.T) {
	app := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewVersion})

	assert.Equal(t, messages.ViewVersion, app.CurrentView())
	assert.Contains(t, app.View(), "No version selected.")
}

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view messages.ViewType
		want string
	}{
		{messages.ViewDocuments, "documents"},
		{messages.ViewHistory, "history"},
		{messages.ViewVersion, "version"},
		{messages.ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.view.String())
	}
}
