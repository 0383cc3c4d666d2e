package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui"
)

// withBrowser replaces the program runner for the duration of a test.
func withBrowser(t *testing.T, run func(*tui.App) error) {
	t.Helper()
	original := runBrowser
	runBrowser = run
	t.Cleanup(func() { runBrowser = original })
}

func TestBrowse_RequiresTerminal(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	withTerminal(t, false, "")

	_, err := execute("browse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}

func TestBrowse_RunsApp(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	withTerminal(t, true, "")

	var ran *tui.App
	withBrowser(t, func(app *tui.App) error {
		ran = app
		return nil
	})

	_, err := execute("browse")

	require.NoError(t, err)
	require.NotNil(t, ran)
}

func TestBrowse_ReportsRunError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	withTerminal(t, true, "")
	withBrowser(t, func(*tui.App) error { return errors.New("no tty") })

	_, err := execute("browse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser: no tty")
}

func TestBrowse_WithoutServices(t *testing.T) {
	SetServices(Services{})
	withTerminal(t, true, "")

	_, err := execute("browse")

	assert.ErrorIs(t, err, tui.ErrMissingDocumentService)
}
