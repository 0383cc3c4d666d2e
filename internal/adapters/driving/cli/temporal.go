package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var asOfCmd = &cobra.Command{
	Use:   "as-of [slug] [time]",
	Short: "Show the version that was current at a point in time",
	Long: `Shows the newest version created at or before the given time.
Times are RFC 3339 (2024-06-01T09:00:00Z) or a bare date (2024-06-01).`,
	Args: cobra.ExactArgs(2),
	RunE: runAsOf,
}

var rangeCmd = &cobra.Command{
	Use:   "range [slug] [from] [to]",
	Short: "List versions created within a time window",
	Args:  cobra.ExactArgs(3),
	RunE:  runRange,
}

var temporalFormat string

func init() {
	addFormatFlag(asOfCmd, &temporalFormat)
	addFormatFlag(rangeCmd, &temporalFormat)

	rootCmd.AddCommand(asOfCmd)
	rootCmd.AddCommand(rangeCmd)
}

func runAsOf(cmd *cobra.Command, args []string) error {
	if temporalService == nil {
		return errors.New("temporal service not configured")
	}

	at, err := parseTimestamp(args[1])
	if err != nil {
		return err
	}

	v, err := temporalService.AsOf(cmd.Context(), args[0], at)
	if err != nil {
		return fmt.Errorf("failed to resolve %s as of %s: %w", args[0], args[1], err)
	}

	return render(cmd, temporalFormat, v, func() { printVersion(cmd, v) })
}

func runRange(cmd *cobra.Command, args []string) error {
	if temporalService == nil {
		return errors.New("temporal service not configured")
	}

	from, err := parseTimestamp(args[1])
	if err != nil {
		return err
	}
	to, err := parseTimestamp(args[2])
	if err != nil {
		return err
	}

	versions, err := temporalService.Range(cmd.Context(), args[0], from, to)
	if err != nil {
		return fmt.Errorf("failed to list range: %w", err)
	}

	return render(cmd, temporalFormat, versions, func() {
		if len(versions) == 0 {
			cmd.Println("No versions in range.")
			return
		}
		for _, v := range versions {
			cmd.Printf("  v%-4d %s  %-12s %s\n", v.Number, formatTimestamp(v.CreatedAt), v.Author, v.Reason)
		}
	})
}
