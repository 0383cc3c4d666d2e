package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// SaveInput is the input schema for the save tool.
type SaveInput struct {
	Document DocumentInput     `json:"document" jsonschema:"the full candidate document"`
	Author   string            `json:"author" jsonschema:"who is making the change"`
	Reason   string            `json:"reason" jsonschema:"why the change is made"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"free-form key/value pairs recorded on the audit entry"`
}

// SaveOutput is the output schema for the save tool.
type SaveOutput struct {
	Version int            `json:"version"`
	Changes []ChangeOutput `json:"changes"`
	Summary string         `json:"summary"`
}

// GetInput is the input schema for the get tool.
type GetInput struct {
	Slug    string `json:"slug" jsonschema:"document identifier"`
	Version int    `json:"version,omitempty" jsonschema:"version number; omit or 0 for the latest"`
}

// SlugInput is the input schema for tools addressing one document.
type SlugInput struct {
	Slug string `json:"slug" jsonschema:"document identifier"`
}

// VersionsOutput is the output schema for the versions tool.
type VersionsOutput struct {
	Versions []VersionInfoOutput `json:"versions"`
}

// ListOutput is the output schema for the list and search tools.
type ListOutput struct {
	Documents []SummaryOutput `json:"documents"`
	Count     int             `json:"count"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to match against subjects and themes"`
}

// DeletionsOutput is the output schema for the deletions tool.
type DeletionsOutput struct {
	Deletions []DeletionOutput `json:"deletions"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	Slug  string `json:"slug" jsonschema:"document identifier"`
	Limit int    `json:"limit,omitempty" jsonschema:"keep only the newest entries (default all)"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	Entries []EntryOutput `json:"entries"`
}

// DiffInput is the input schema for the diff tool.
type DiffInput struct {
	Slug string `json:"slug" jsonschema:"document identifier"`
	From int    `json:"from" jsonschema:"version to diff from"`
	To   int    `json:"to" jsonschema:"version to diff to"`
}

// DiffOutput is the output schema for the diff tool.
type DiffOutput struct {
	Changes []ChangeOutput `json:"changes"`
	Summary string         `json:"summary"`
}

// MergeInput is the input schema for the merge tool.
type MergeInput struct {
	Slug        string        `json:"slug" jsonschema:"document identifier"`
	BaseVersion int           `json:"base_version" jsonschema:"the stored version both edits started from"`
	Yours       DocumentInput `json:"yours" jsonschema:"your edited document"`
	Theirs      DocumentInput `json:"theirs" jsonschema:"the other collaborator's edited document"`
}

// MergeOutput is the output schema for the merge tool.
type MergeOutput struct {
	Merged      DocumentInput    `json:"merged"`
	Conflicts   []ConflictOutput `json:"conflicts"`
	BaseVersion int              `json:"base_version"`
	NeedsReview bool             `json:"needs_review"`
}

// AsOfInput is the input schema for the as_of tool.
type AsOfInput struct {
	Slug string `json:"slug" jsonschema:"document identifier"`
	At   string `json:"at" jsonschema:"RFC 3339 timestamp"`
}

// RangeInput is the input schema for the range tool.
type RangeInput struct {
	Slug string `json:"slug" jsonschema:"document identifier"`
	From string `json:"from" jsonschema:"inclusive RFC 3339 start"`
	To   string `json:"to" jsonschema:"inclusive RFC 3339 end"`
}

// RangeOutput is the output schema for the range tool.
type RangeOutput struct {
	Versions []VersionOutput `json:"versions"`
}

// CompareInput is the input schema for the compare tool.
type CompareInput struct {
	A string `json:"a" jsonschema:"first document slug"`
	B string `json:"b" jsonschema:"second document slug"`
}

// BlindspotsInput is the input schema for the blindspots tool.
type BlindspotsInput struct {
	Target string   `json:"target" jsonschema:"document to check for missing themes"`
	Others []string `json:"others" jsonschema:"documents to compare against"`
}

// BlindspotsOutput is the output schema for the blindspots tool.
type BlindspotsOutput struct {
	Blindspots []domain.Blindspot `json:"blindspots"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save",
		Description: "Save a full document as the next version of its slug",
	}, s.handleSave)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get",
		Description: "Get a document snapshot, latest or by version",
	}, s.handleGet)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versions",
		Description: "List a document's versions, newest first",
	}, s.handleVersions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list",
		Description: "List every stored document",
	}, s.handleList)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find documents by subject or theme",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "deletions",
		Description: "List deleted documents with who deleted them and why, newest first",
	}, s.handleDeletions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "Show the audit trail of who changed a document, when and why",
	}, s.handleHistory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "diff",
		Description: "Show field-level changes between two versions",
	}, s.handleDiff)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "merge",
		Description: "Three-way merge two edits against a stored base version; conflicts are reported, not resolved",
	}, s.handleMerge)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "as_of",
		Description: "Get the version of a document that was current at a point in time",
	}, s.handleAsOf)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "range",
		Description: "Get every version created within a time window",
	}, s.handleRange)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify",
		Description: "Check a document's checksums and audit chain",
	}, s.handleVerify)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare",
		Description: "Compare two documents theme by theme",
	}, s.handleCompare)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "blindspots",
		Description: "Find themes other documents address that the target does not",
	}, s.handleBlindspots)
}

func (s *Server) handleSave(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveInput,
) (*mcp.CallToolResult, SaveOutput, error) {
	result, err := s.ports.Document.Save(ctx, driving.SaveRequest{
		Document: input.Document.toDomain(),
		Author:   input.Author,
		Reason:   input.Reason,
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, SaveOutput{}, err
	}
	return nil, SaveOutput{
		Version: result.Version,
		Changes: changeOutputs(result.Changes),
		Summary: result.Summary.String(),
	}, nil
}

func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetInput,
) (*mcp.CallToolResult, VersionOutput, error) {
	v, err := s.ports.Document.Get(ctx, input.Slug, input.Version)
	if err != nil {
		return nil, VersionOutput{}, err
	}
	return nil, versionOutput(*v), nil
}

func (s *Server) handleVersions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SlugInput,
) (*mcp.CallToolResult, VersionsOutput, error) {
	infos, err := s.ports.Document.ListVersions(ctx, input.Slug)
	if err != nil {
		return nil, VersionsOutput{}, err
	}
	out := VersionsOutput{Versions: make([]VersionInfoOutput, len(infos))}
	for i, info := range infos {
		out.Versions[i] = VersionInfoOutput{
			Version:   info.Number,
			CreatedAt: formatTime(info.CreatedAt),
			Author:    info.Author,
			Reason:    info.Reason,
		}
	}
	return nil, out, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListOutput, error) {
	summaries, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, ListOutput{Documents: summaryOutputs(summaries), Count: len(summaries)}, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, ListOutput, error) {
	summaries, err := s.ports.Document.Search(ctx, input.Query)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, ListOutput{Documents: summaryOutputs(summaries), Count: len(summaries)}, nil
}

func (s *Server) handleDeletions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, DeletionsOutput, error) {
	records, err := s.ports.Document.Deletions(ctx)
	if err != nil {
		return nil, DeletionsOutput{}, err
	}
	return nil, DeletionsOutput{Deletions: deletionOutputs(records)}, nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	if s.ports.History == nil {
		return nil, HistoryOutput{}, errUnavailable
	}
	entries, err := s.ports.History.History(ctx, input.Slug, input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	out := HistoryOutput{Entries: make([]EntryOutput, len(entries))}
	for i, e := range entries {
		out.Entries[i] = entryOutput(e)
	}
	return nil, out, nil
}

func (s *Server) handleDiff(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DiffInput,
) (*mcp.CallToolResult, DiffOutput, error) {
	if s.ports.History == nil {
		return nil, DiffOutput{}, errUnavailable
	}
	changes, err := s.ports.History.Diff(ctx, input.Slug, input.From, input.To)
	if err != nil {
		return nil, DiffOutput{}, err
	}
	return nil, DiffOutput{
		Changes: changeOutputs(changes),
		Summary: domain.Summarize(changes).String(),
	}, nil
}

func (s *Server) handleMerge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MergeInput,
) (*mcp.CallToolResult, MergeOutput, error) {
	if s.ports.Merge == nil {
		return nil, MergeOutput{}, errUnavailable
	}
	result, err := s.ports.Merge.Merge(ctx, input.Slug, input.BaseVersion,
		input.Yours.toDomain(), input.Theirs.toDomain())
	if err != nil {
		return nil, MergeOutput{}, err
	}

	out := MergeOutput{
		Merged:      documentInput(result.Merged),
		Conflicts:   make([]ConflictOutput, len(result.Conflicts)),
		BaseVersion: result.BaseVersion,
		NeedsReview: result.HasConflicts(),
	}
	for i, c := range result.Conflicts {
		out.Conflicts[i] = ConflictOutput{
			Path:       c.Path,
			Base:       decodeRaw(c.Base),
			Yours:      decodeRaw(c.Yours),
			Theirs:     decodeRaw(c.Theirs),
			Resolution: c.Resolution.String(),
		}
	}
	return nil, out, nil
}

func (s *Server) handleAsOf(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AsOfInput,
) (*mcp.CallToolResult, VersionOutput, error) {
	if s.ports.Temporal == nil {
		return nil, VersionOutput{}, errUnavailable
	}
	at, err := parseTime(input.At)
	if err != nil {
		return nil, VersionOutput{}, fmt.Errorf("%w: at: %v", domain.ErrInvalidInput, err)
	}
	v, err := s.ports.Temporal.AsOf(ctx, input.Slug, at)
	if err != nil {
		return nil, VersionOutput{}, err
	}
	return nil, versionOutput(*v), nil
}

func (s *Server) handleRange(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RangeInput,
) (*mcp.CallToolResult, RangeOutput, error) {
	if s.ports.Temporal == nil {
		return nil, RangeOutput{}, errUnavailable
	}
	from, err := parseTime(input.From)
	if err != nil {
		return nil, RangeOutput{}, fmt.Errorf("%w: from: %v", domain.ErrInvalidInput, err)
	}
	to, err := parseTime(input.To)
	if err != nil {
		return nil, RangeOutput{}, fmt.Errorf("%w: to: %v", domain.ErrInvalidInput, err)
	}
	versions, err := s.ports.Temporal.Range(ctx, input.Slug, from, to)
	if err != nil {
		return nil, RangeOutput{}, err
	}
	out := RangeOutput{Versions: make([]VersionOutput, len(versions))}
	for i, v := range versions {
		out.Versions[i] = versionOutput(v)
	}
	return nil, out, nil
}

func (s *Server) handleVerify(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SlugInput,
) (*mcp.CallToolResult, driving.VerifyReport, error) {
	if s.ports.History == nil {
		return nil, driving.VerifyReport{}, errUnavailable
	}
	report, err := s.ports.History.Verify(ctx, input.Slug)
	if err != nil {
		return nil, driving.VerifyReport{}, err
	}
	return nil, *report, nil
}

func (s *Server) handleCompare(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompareInput,
) (*mcp.CallToolResult, domain.Comparison, error) {
	if s.ports.Compare == nil {
		return nil, domain.Comparison{}, errUnavailable
	}
	cmp, err := s.ports.Compare.Compare(ctx, input.A, input.B)
	if err != nil {
		return nil, domain.Comparison{}, err
	}
	return nil, *cmp, nil
}

func (s *Server) handleBlindspots(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BlindspotsInput,
) (*mcp.CallToolResult, BlindspotsOutput, error) {
	if s.ports.Compare == nil {
		return nil, BlindspotsOutput{}, errUnavailable
	}
	spots, err := s.ports.Compare.Blindspots(ctx, input.Target, input.Others)
	if err != nil {
		return nil, BlindspotsOutput{}, err
	}
	return nil, BlindspotsOutput{Blindspots: spots}, nil
}
