// Package cli implements the wve command line.
package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services injected by main.
var (
	documentService driving.DocumentService
	historyService  driving.HistoryService
	temporalService driving.TemporalService
	mergeService    driving.MergeService
	compareService  driving.CompareService
	settingsService driving.SettingsService
	metricsHandler  http.Handler
	reloadConfig    func(ctx context.Context) error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "wve",
	Short: "Versioned knowledge store",
	Long: `wve keeps every version of structured knowledge documents, records who
changed what and why, and answers questions about how a document evolved.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services holds the driving ports the commands use.
type Services struct {
	Document driving.DocumentService
	History  driving.HistoryService
	Temporal driving.TemporalService
	Merge    driving.MergeService
	Compare  driving.CompareService
	Settings driving.SettingsService

	// Metrics is served next to the MCP HTTP endpoint when set.
	Metrics http.Handler

	// Reload, when set, runs for the lifetime of long-running commands
	// and applies configuration changes as they happen.
	Reload func(ctx context.Context) error
}

// SetServices injects the services used by all commands.
func SetServices(s Services) {
	documentService = s.Document
	historyService = s.History
	temporalService = s.Temporal
	mergeService = s.Merge
	compareService = s.Compare
	settingsService = s.Settings
	metricsHandler = s.Metrics
	reloadConfig = s.Reload
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
