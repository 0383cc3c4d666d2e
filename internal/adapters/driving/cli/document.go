package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

var saveCmd = &cobra.Command{
	Use:   "save [slug]",
	Short: "Save a new version of a document",
	Long: `Reads a full document from a YAML or JSON file and stores it as the next
version of the slug. The change list against the previous version is
recorded in the audit ledger together with the author and reason.

Example document:
  subject: Alpha
  points:
    - theme: economics
      stance: skeptical of tariffs
      confidence: 0.6
      evidence: [ep12]`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var getCmd = &cobra.Command{
	Use:   "get [slug]",
	Short: "Show a document version",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var versionsCmd = &cobra.Command{
	Use:   "versions [slug]",
	Short: "List a document's versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find documents by subject or theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [slug]",
	Short: "Delete a document and its whole history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var deletionsCmd = &cobra.Command{
	Use:   "deletions",
	Short: "List deleted documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDeletions,
}

var (
	saveFile     string
	saveAuthor   string
	saveReason   string
	saveMetadata map[string]string

	getVersion int
	getFormat  string

	listFormat string

	deleteYes    bool
	deleteAuthor string
	deleteReason string
)

func init() {
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "-", "document file (YAML or JSON), - for stdin")
	saveCmd.Flags().StringVarP(&saveAuthor, "author", "a", os.Getenv("USER"), "who is making the change")
	saveCmd.Flags().StringVarP(&saveReason, "reason", "r", "", "why the change is made")
	saveCmd.Flags().StringToStringVarP(&saveMetadata, "meta", "m", nil, "metadata recorded on the audit entry (key=value)")

	getCmd.Flags().IntVar(&getVersion, "version", 0, "version number (0 = latest)")
	addFormatFlag(getCmd, &getFormat)
	addFormatFlag(versionsCmd, &listFormat)
	addFormatFlag(listCmd, &listFormat)
	addFormatFlag(searchCmd, &listFormat)
	addFormatFlag(deletionsCmd, &listFormat)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	deleteCmd.Flags().StringVarP(&deleteAuthor, "author", "a", os.Getenv("USER"), "who is deleting the document")
	deleteCmd.Flags().StringVarP(&deleteReason, "reason", "r", "", "why the document is deleted")

	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(deletionsCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	slug := args[0]
	doc, err := readDocument(cmd, saveFile, slug)
	if err != nil {
		return err
	}

	result, err := documentService.Save(cmd.Context(), driving.SaveRequest{
		Document: doc,
		Author:   saveAuthor,
		Reason:   saveReason,
		Metadata: saveMetadata,
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", slug, err)
	}

	cmd.Printf("Saved %s v%d (%s)\n", slug, result.Version, result.Summary)
	printChanges(cmd, result.Changes)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	v, err := documentService.Get(cmd.Context(), args[0], getVersion)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	return render(cmd, getFormat, v, func() { printVersion(cmd, v) })
}

func runVersions(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	infos, err := documentService.ListVersions(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}

	return render(cmd, listFormat, infos, func() {
		cmd.Println(headerStyle.Render("Versions of " + args[0]))
		for _, info := range infos {
			cmd.Printf("  v%-4d %s  %-12s %s\n", info.Number, formatTimestamp(info.CreatedAt), info.Author, info.Reason)
		}
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	summaries, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	return render(cmd, listFormat, summaries, func() { printSummaries(cmd, summaries) })
}

func runSearch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	summaries, err := documentService.Search(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return render(cmd, listFormat, summaries, func() { printSummaries(cmd, summaries) })
}

func printSummaries(cmd *cobra.Command, summaries []domain.DocumentSummary) {
	if len(summaries) == 0 {
		cmd.Println("No documents found.")
		return
	}
	for _, s := range summaries {
		cmd.Printf("  %-24s v%-4d %2d points  %s  %s\n",
			s.Slug, s.Head, s.PointCount, formatTimestamp(s.UpdatedAt), s.Subject)
	}
	cmd.Printf("\nTotal: %d documents\n", len(summaries))
}

func runDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	slug := args[0]
	if !deleteYes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete %s and its whole history?", slug))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	record, err := documentService.Delete(cmd.Context(), slug, deleteAuthor, deleteReason)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", slug, err)
	}

	cmd.Printf("Deleted %s (%d versions)\n", record.Slug, record.Versions)
	return nil
}

func runDeletions(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	records, err := documentService.Deletions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list deletions: %w", err)
	}

	return render(cmd, listFormat, records, func() {
		if len(records) == 0 {
			cmd.Println("No deleted documents.")
			return
		}
		for _, r := range records {
			cmd.Printf("  %-24s %3d versions  %s  %-12s %s\n",
				r.Slug, r.Versions, formatTimestamp(r.DeletedAt), r.Author, r.Reason)
		}
	})
}

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on an interactive terminal.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if !stdinIsTerminal() {
		return false, errors.New("refusing to delete without --yes when stdin is not a terminal")
	}
	cmd.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
