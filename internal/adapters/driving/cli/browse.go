package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wve/internal/adapters/driving/tui"
)

// runBrowser is replaced in tests.
var runBrowser = func(app *tui.App) error {
	return app.Run()
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse documents and their history interactively",
	Long: `Open a terminal browser over the stored documents.

Pick a document to see its audit history, then pick an entry to read that
version together with the changes that produced it.

Controls:
  ↑/k, ↓/j - Move
  Enter    - Open
  /        - Search subjects and themes
  r        - Reload
  Esc      - Back
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	if !stdinIsTerminal() {
		return errors.New("browse needs an interactive terminal")
	}

	app, err := tui.NewApp(&tui.Ports{
		Document: documentService,
		History:  historyService,
	})
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	if err := runBrowser(app); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser: %w", err)
	}
	return nil
}
