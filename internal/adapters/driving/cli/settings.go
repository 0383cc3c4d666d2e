package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wve/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the storage backend, merge resolution and save retries.

Settings live in ~/.wve/config.toml. A running 'wve mcp serve' picks up a
changed merge resolution without restarting.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsBackendCmd = &cobra.Command{
	Use:   "backend [sqlite|badger|memory]",
	Short: "Set the storage backend",
	Long: `Set the storage backend used for documents and the audit ledger.

Available backends:
  sqlite - single file with full-text search (default)
  badger - embedded key-value store
  memory - not persisted, for experiments

Existing data is not migrated between backends.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"sqlite", "badger", "memory"},
	RunE:      runSettingsBackend,
}

var settingsResolutionCmd = &cobra.Command{
	Use:   "resolution [yours|theirs|base]",
	Short: "Set how merge conflicts are filled in",
	Long: `Set which side a conflicted field takes in the merged document.
Conflicts are always reported regardless of this setting.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"yours", "theirs", "base"},
	RunE:      runSettingsResolution,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	settingsCmd.AddCommand(settingsResolutionCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend.Description())
	dataDir := settings.Store.DataDir
	if dataDir == "" {
		dataDir = "(default)"
	}
	cmd.Printf("  Data dir: %s\n", dataDir)
	cmd.Println()

	cmd.Println("[Merge]")
	cmd.Printf("  Resolution: %s\n", settings.Merge.Resolution)
	cmd.Println()

	cmd.Println("[Save]")
	cmd.Printf("  Max attempts: %d\n", settings.Save.MaxAttempts)
	cmd.Printf("  Retries per second: %g\n", settings.Save.RetryPerSecond)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Invalid values are ignored in favour of defaults.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsBackend(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.Backend(args[0])
	if err := settingsService.SetBackend(backend); err != nil {
		return fmt.Errorf("failed to set backend: %w", err)
	}

	cmd.Printf("Backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsResolution(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	resolution, err := domain.ParseResolution(args[0])
	if err != nil {
		return err
	}
	if err := settingsService.SetResolution(resolution); err != nil {
		return fmt.Errorf("failed to set resolution: %w", err)
	}

	cmd.Printf("Merge resolution set to: %s\n", resolution)
	return nil
}
