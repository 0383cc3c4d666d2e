package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [slug] [base-version]",
	Short: "Three-way merge two edited documents",
	Long: `Merges two edits of a document against the stored version both started
from. Fields changed on only one side are taken from that side. Fields both
sides changed differently are conflicts: they are listed and the merged
document takes the configured resolution (see 'wve settings').

The merged document is printed, not saved.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

var compareCmd = &cobra.Command{
	Use:   "compare [slug-a] [slug-b]",
	Short: "Compare two documents theme by theme",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

var blindspotsCmd = &cobra.Command{
	Use:   "blindspots [target] [other...]",
	Short: "Find themes other documents cover that the target does not",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBlindspots,
}

var (
	mergeYours   string
	mergeTheirs  string
	mergeFormat  string
	relateFormat string
)

func init() {
	mergeCmd.Flags().StringVar(&mergeYours, "yours", "", "your edited document file")
	mergeCmd.Flags().StringVar(&mergeTheirs, "theirs", "", "the other edited document file")
	addFormatFlag(mergeCmd, &mergeFormat)
	addFormatFlag(compareCmd, &relateFormat)
	addFormatFlag(blindspotsCmd, &relateFormat)

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(blindspotsCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeService == nil {
		return errors.New("merge service not configured")
	}
	if mergeYours == "" || mergeTheirs == "" {
		return errors.New("both --yours and --theirs are required")
	}

	slug := args[0]
	base, err := parseVersionArg(args[1])
	if err != nil {
		return err
	}
	yours, err := readDocument(cmd, mergeYours, slug)
	if err != nil {
		return fmt.Errorf("yours: %w", err)
	}
	theirs, err := readDocument(cmd, mergeTheirs, slug)
	if err != nil {
		return fmt.Errorf("theirs: %w", err)
	}

	result, err := mergeService.Merge(cmd.Context(), slug, base, yours, theirs)
	if err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}

	return render(cmd, mergeFormat, result, func() {
		if result.HasConflicts() {
			cmd.Println(conflictStyle.Render(fmt.Sprintf("%d conflict(s), review required", len(result.Conflicts))))
			for _, c := range result.Conflicts {
				cmd.Printf("  %s\n", c.Path)
				cmd.Printf("    base:   %s\n", c.Base)
				cmd.Printf("    yours:  %s\n", c.Yours)
				cmd.Printf("    theirs: %s\n", c.Theirs)
				cmd.Printf("    merged: %s side\n", c.Resolution)
			}
		} else {
			cmd.Println(addStyle.Render("Merged cleanly"))
		}
		cmd.Println()
		cmd.Println(headerStyle.Render(fmt.Sprintf("Merged %s (base v%d)", slug, result.BaseVersion)))
		printDocument(cmd, result.Merged)
	})
}

func runCompare(cmd *cobra.Command, args []string) error {
	if compareService == nil {
		return errors.New("compare service not configured")
	}

	cmp, err := compareService.Compare(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to compare: %w", err)
	}

	return render(cmd, relateFormat, cmp, func() {
		cmd.Println(headerStyle.Render(fmt.Sprintf("%s vs %s", cmp.SubjectA, cmp.SubjectB)))
		cmd.Printf("  Similarity: %.0f%%\n\n", cmp.Similarity*100)
		for _, pc := range cmp.Agreements {
			cmd.Println(addStyle.Render("  = " + pc.Theme))
			cmd.Printf("      %s / %s\n", pc.A.Stance, pc.B.Stance)
		}
		for _, pc := range cmp.Tensions {
			cmd.Println(conflictStyle.Render("  ! " + pc.Theme))
			cmd.Printf("      %s / %s\n", pc.A.Stance, pc.B.Stance)
		}
		for _, p := range cmp.UniqueToA {
			cmd.Printf("  < %s (only %s)\n", p.Theme, cmp.SubjectA)
		}
		for _, p := range cmp.UniqueToB {
			cmd.Printf("  > %s (only %s)\n", p.Theme, cmp.SubjectB)
		}
	})
}

func runBlindspots(cmd *cobra.Command, args []string) error {
	if compareService == nil {
		return errors.New("compare service not configured")
	}

	spots, err := compareService.Blindspots(cmd.Context(), args[0], args[1:])
	if err != nil {
		return fmt.Errorf("failed to find blindspots: %w", err)
	}

	return render(cmd, relateFormat, spots, func() {
		if len(spots) == 0 {
			cmd.Println("No blindspots found.")
			return
		}
		for _, s := range spots {
			cmd.Printf("  %s: addressed by %s\n", s.MissingTheme, strings.Join(s.AddressedBy, ", "))
		}
	})
}
