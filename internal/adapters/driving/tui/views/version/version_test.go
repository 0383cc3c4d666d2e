package version

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

// fixture stores two versions of alpha and returns the services and
// the audit entries, oldest first.
func fixture(t *testing.T) (driving.DocumentService, []domain.AuditEntry) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewVersionStore()
	docs := services.NewDocumentService(store, nil, domain.SaveSettings{MaxAttempts: 3, RetryPerSecond: 1000})

	d := domain.NewDocument("alpha", "Alpha")
	d.Put(domain.Point{Theme: "economics", Stance: "skeptical", Confidence: 0.6, Evidence: []string{"ep1"}})
	_, err := docs.Save(ctx, driving.SaveRequest{Document: d, Author: "tester", Reason: "initial"})
	require.NoError(t, err)

	d.Put(domain.Point{Theme: "climate", Stance: "concerned", Confidence: 0.9, Sources: []string{"s1", "s2"}})
	_, err = docs.Save(ctx, driving.SaveRequest{
		Document: d, Author: "tester", Reason: "new theme",
		Metadata: map[string]string{"run": "42"},
	})
	require.NoError(t, err)

	entries, err := services.NewHistoryService(store, nil).History(ctx, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	return docs, entries
}

func TestNewView_NilParams(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.Nil(t, view.Entry())
	assert.Contains(t, view.View(), "No version selected.")
}

func TestView_SetEntryLoadsVersion(t *testing.T) {
	docs, entries := fixture(t)
	view := NewView(nil, nil, docs)
	view.SetDimensions(120, 60)

	cmd := view.SetEntry(entries[1])
	require.NotNil(t, cmd)
	assert.True(t, view.Loading())
	assert.Contains(t, view.View(), "Loading version...")

	view, _ = view.Update(cmd())

	require.NoError(t, view.Err())
	require.NotNil(t, view.Version())
	assert.Equal(t, 2, view.Version().Number)

	out := view.View()
	assert.Contains(t, out, "alpha v2")
	assert.Contains(t, out, "new theme")
	assert.Contains(t, out, "run=42")
	assert.Contains(t, out, "+ points/climate")
	assert.Contains(t, out, "Points (2)")
	assert.Contains(t, out, "s1, s2")
}

func TestView_FirstVersion(t *testing.T) {
	docs, entries := fixture(t)
	view := NewView(nil, nil, docs)
	view.SetDimensions(120, 60)

	view, _ = view.Update(view.SetEntry(entries[0])())

	out := view.View()
	assert.Contains(t, out, "alpha v1")
	assert.Contains(t, out, "Points (1)")
	assert.Contains(t, out, "ep1")
}

func TestView_IgnoresStaleVersion(t *testing.T) {
	docs, entries := fixture(t)
	view := NewView(nil, nil, docs)

	stale := view.SetEntry(entries[0])
	current := view.SetEntry(entries[1])

	view, _ = view.Update(stale())
	assert.True(t, view.Loading())

	view, _ = view.Update(current())
	assert.Equal(t, 2, view.Version().Number)
}

func TestView_MissingVersion(t *testing.T) {
	docs, entries := fixture(t)
	view := NewView(nil, nil, docs)
	entry := entries[1]
	entry.After = 9

	view, _ = view.Update(view.SetEntry(entry)())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_Scrolls(t *testing.T) {
	docs, entries := fixture(t)
	view := NewView(nil, nil, docs)
	view.SetDimensions(120, 7) // three body rows

	view, _ = view.Update(view.SetEntry(entries[1])())
	require.True(t, view.viewport.AtTop())

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})

	assert.Equal(t, 1, view.viewport.YOffset)
}

func TestView_BackAndQuit(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHistory}, cmd())

	_, cmd = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}
