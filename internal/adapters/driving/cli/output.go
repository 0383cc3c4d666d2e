package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	addStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	removeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	replaceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	conflictStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8"))
)

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "o", formatText, "output format: text, json or yaml")
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(cmd *cobra.Command, format string, v any, text func()) error {
	switch format {
	case formatText, "":
		text()
		return nil
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		cmd.Println(string(data))
		return nil
	case formatYAML:
		// Round trip through JSON so YAML keys follow the JSON field names.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		cmd.Print(string(out))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func printChanges(cmd *cobra.Command, changes []domain.Change) {
	if len(changes) == 0 {
		cmd.Println(mutedStyle.Render("  (no changes)"))
		return
	}
	for _, c := range changes {
		line := "  " + c.String()
		switch c.Op {
		case domain.ChangeAdd:
			line = addStyle.Render(line)
		case domain.ChangeRemove:
			line = removeStyle.Render(line)
		default:
			line = replaceStyle.Render(line)
		}
		cmd.Println(line)
	}
}

func printDocument(cmd *cobra.Command, doc domain.Document) {
	cmd.Printf("  Subject: %s\n", doc.Subject)
	for _, theme := range doc.Themes() {
		p := doc.Points[theme]
		cmd.Printf("  - %s (%.2f): %s\n", p.Theme, p.Confidence, p.Stance)
		if len(p.Evidence) > 0 {
			cmd.Printf("      evidence: %s\n", strings.Join(p.Evidence, ", "))
		}
		if len(p.Sources) > 0 {
			cmd.Printf("      sources:  %s\n", strings.Join(p.Sources, ", "))
		}
	}
}

func printVersion(cmd *cobra.Command, v *domain.Version) {
	cmd.Println(headerStyle.Render(fmt.Sprintf("%s v%d", v.Slug, v.Number)))
	cmd.Printf("  Created:  %s\n", formatTimestamp(v.CreatedAt))
	cmd.Printf("  Author:   %s\n", v.Author)
	cmd.Printf("  Reason:   %s\n", v.Reason)
	cmd.Printf("  Checksum: %s\n", mutedStyle.Render(v.Checksum))
	cmd.Println()
	printDocument(cmd, v.Document)
}

// documentFile is the on-disk form of a candidate document. JSON files
// parse too, being valid YAML.
type documentFile struct {
	Slug    string      `yaml:"slug"`
	Subject string      `yaml:"subject"`
	Points  []pointFile `yaml:"points"`
}

type pointFile struct {
	Theme      string   `yaml:"theme"`
	Stance     string   `yaml:"stance"`
	Confidence float64  `yaml:"confidence"`
	Evidence   []string `yaml:"evidence"`
	Sources    []string `yaml:"sources"`
}

// readDocument loads a document file; "-" reads stdin. The slug
// defaults to the one given on the command line and must match it.
func readDocument(cmd *cobra.Command, path, slug string) (domain.Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return domain.Document{}, fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}
	return decodeDocument(r, slug)
}

func decodeDocument(r io.Reader, slug string) (domain.Document, error) {
	var file documentFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return domain.Document{}, fmt.Errorf("%w: failed to parse document: %v", domain.ErrInvalidInput, err)
	}

	if file.Slug == "" {
		file.Slug = slug
	}
	if slug != "" && file.Slug != slug {
		return domain.Document{}, fmt.Errorf("%w: document slug %q does not match %q", domain.ErrInvalidInput, file.Slug, slug)
	}

	doc := domain.NewDocument(file.Slug, file.Subject)
	for _, p := range file.Points {
		if _, dup := doc.Points[p.Theme]; dup {
			return domain.Document{}, fmt.Errorf("%w: theme %q appears twice", domain.ErrInvalidInput, p.Theme)
		}
		doc.Put(domain.Point{
			Theme:      p.Theme,
			Stance:     p.Stance,
			Confidence: p.Confidence,
			Evidence:   p.Evidence,
			Sources:    p.Sources,
		})
	}
	return doc, nil
}
