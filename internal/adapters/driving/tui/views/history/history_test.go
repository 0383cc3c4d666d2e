package history

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

// newService stores three versions of alpha.
func newService(t *testing.T) driving.HistoryService {
	t.Helper()
	store := memory.NewVersionStore()
	docs := services.NewDocumentService(store, nil, domain.SaveSettings{MaxAttempts: 3, RetryPerSecond: 1000})

	d := domain.NewDocument("alpha", "Alpha")
	for i, reason := range []string{"initial", "more evidence", "new theme"} {
		d.Put(domain.Point{Theme: "economics", Stance: "skeptical", Confidence: 0.5 + float64(i)/10})
		if i == 2 {
			d.Put(domain.Point{Theme: "climate", Stance: "concerned", Confidence: 0.9})
		}
		_, err := docs.Save(context.Background(), driving.SaveRequest{Document: d, Author: "tester", Reason: reason})
		require.NoError(t, err)
	}
	return services.NewHistoryService(store, nil)
}

var alpha = domain.DocumentSummary{Slug: "alpha", Subject: "Alpha", Head: 3}

func loaded(t *testing.T) *View {
	t.Helper()
	view := NewView(nil, nil, newService(t))
	view.SetDimensions(120, 40)
	cmd := view.SetDocument(alpha)
	require.NotNil(t, cmd)
	view, _ = view.Update(cmd())
	return view
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView_NilParams(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.Nil(t, view.Document())
	assert.Contains(t, view.View(), "No document selected.")
}

func TestView_SetDocumentLoadsNewestFirst(t *testing.T) {
	view := loaded(t)

	require.NoError(t, view.Err())
	entries := view.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].After)
	assert.Equal(t, 1, entries[2].After)
	assert.Equal(t, domain.OpCreate, entries[2].Kind)
	assert.Equal(t, "alpha", view.Document().Slug)
}

func TestView_IgnoresHistoryOfAnotherDocument(t *testing.T) {
	view := loaded(t)

	view, _ = view.Update(messages.HistoryLoaded{Slug: "beta"})

	assert.Len(t, view.Entries(), 3)
}

func TestView_UnknownDocument(t *testing.T) {
	view := NewView(nil, nil, newService(t))

	view, _ = view.Update(view.SetDocument(domain.DocumentSummary{Slug: "missing"})())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_NilService(t *testing.T) {
	view := NewView(nil, nil, nil)

	view, _ = view.Update(view.SetDocument(alpha)())

	assert.Error(t, view.Err())
}

func TestView_SelectEntry(t *testing.T) {
	view := loaded(t)

	view, _ = view.Update(runes("j"))
	view, _ = view.Update(runes("j"))
	view, _ = view.Update(runes("j"))
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	selected, ok := cmd().(messages.EntrySelected)
	require.True(t, ok)
	assert.Equal(t, 1, selected.Entry.After)
	assert.Equal(t, "initial", selected.Entry.Reason)
}

func TestView_BackAndQuit(t *testing.T) {
	view := loaded(t)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewDocuments}, cmd())

	_, cmd = view.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}

func TestView_Reload(t *testing.T) {
	view := loaded(t)

	_, cmd := view.Update(runes("r"))

	require.NotNil(t, cmd)
	assert.True(t, view.Loading())
	msg, ok := cmd().(messages.HistoryLoaded)
	require.True(t, ok)
	assert.Len(t, msg.Entries, 3)
}

func TestView_Render(t *testing.T) {
	view := loaded(t)

	out := view.View()

	assert.Contains(t, out, "History - alpha")
	assert.Contains(t, out, "new theme")
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "tester")
}
