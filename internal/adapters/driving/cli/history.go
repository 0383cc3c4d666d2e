package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wve/internal/core/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history [slug]",
	Short: "Show who changed a document, when and why",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var diffCmd = &cobra.Command{
	Use:   "diff [slug] [from] [to]",
	Short: "Show field-level changes between two versions",
	Args:  cobra.ExactArgs(3),
	RunE:  runDiff,
}

var replayCmd = &cobra.Command{
	Use:   "replay [slug] [version]",
	Short: "Rebuild a version from the audit ledger alone",
	Long: `Applies the recorded change lists in order, starting from an empty
document. Omit the version to replay the whole ledger.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReplay,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [slug]",
	Short: "Check checksums and the audit chain of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the newest entries (0 = all)")
	addFormatFlag(historyCmd, &historyFormat)
	addFormatFlag(diffCmd, &historyFormat)
	addFormatFlag(replayCmd, &historyFormat)

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	entries, err := historyService.History(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	return render(cmd, historyFormat, entries, func() {
		for _, e := range entries {
			cmd.Println(headerStyle.Render(fmt.Sprintf("v%d  %s", e.After, e.Kind)))
			cmd.Printf("  %s by %s\n", formatTimestamp(e.Timestamp), e.Author)
			cmd.Printf("  %s\n", e.Reason)
			for k, v := range e.Metadata {
				cmd.Printf("  %s: %s\n", mutedStyle.Render(k), v)
			}
			printChanges(cmd, e.Changes)
			cmd.Println()
		}
	})
}

func runDiff(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	from, err := parseVersionArg(args[1])
	if err != nil {
		return err
	}
	to, err := parseVersionArg(args[2])
	if err != nil {
		return err
	}

	changes, err := historyService.Diff(cmd.Context(), args[0], from, to)
	if err != nil {
		return fmt.Errorf("failed to diff: %w", err)
	}

	return render(cmd, historyFormat, changes, func() {
		cmd.Printf("%s v%d -> v%d: %s\n", args[0], from, to, domain.Summarize(changes))
		printChanges(cmd, changes)
	})
}

func runReplay(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	version := 0
	if len(args) == 2 {
		v, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		version = v
	}

	doc, err := historyService.Replay(cmd.Context(), args[0], version)
	if err != nil {
		return fmt.Errorf("failed to replay: %w", err)
	}

	return render(cmd, historyFormat, doc, func() {
		cmd.Println(headerStyle.Render("Replayed " + doc.Slug))
		printDocument(cmd, *doc)
	})
}

func runVerify(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	report, err := historyService.Verify(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	cmd.Printf("%s: OK (%d versions, %d ledger entries)\n", report.Slug, report.Versions, report.Entries)
	cmd.Printf("  head hash: %s\n", mutedStyle.Render(report.HeadHash))
	return nil
}

func parseVersionArg(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q: must be a positive integer", s)
	}
	return v, nil
}
