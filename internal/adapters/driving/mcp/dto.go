package mcp

import (
	"encoding/json"
	"time"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// Tool payloads mirror the domain types with schema-friendly fields:
// timestamps are RFC 3339 strings and change values are decoded JSON.

// PointInput is one theme's stance.
type PointInput struct {
	Theme      string   `json:"theme" jsonschema:"the theme the point is about; unique within the document"`
	Stance     string   `json:"stance,omitempty" jsonschema:"the position taken on the theme"`
	Confidence float64  `json:"confidence" jsonschema:"confidence between 0 and 1"`
	Evidence   []string `json:"evidence,omitempty" jsonschema:"ordered citations supporting the stance"`
	Sources    []string `json:"sources,omitempty" jsonschema:"identifiers of the sources the point was drawn from"`
}

// DocumentInput is a candidate document.
type DocumentInput struct {
	Slug    string       `json:"slug" jsonschema:"stable document identifier"`
	Subject string       `json:"subject" jsonschema:"human-readable label"`
	Points  []PointInput `json:"points" jsonschema:"the document's points, one per theme"`
}

func (in DocumentInput) toDomain() domain.Document {
	doc := domain.NewDocument(in.Slug, in.Subject)
	for _, p := range in.Points {
		doc.Put(domain.Point{
			Theme:      p.Theme,
			Stance:     p.Stance,
			Confidence: p.Confidence,
			Evidence:   p.Evidence,
			Sources:    p.Sources,
		})
	}
	return doc
}

func documentInput(doc domain.Document) DocumentInput {
	out := DocumentInput{Slug: doc.Slug, Subject: doc.Subject, Points: make([]PointInput, 0, len(doc.Points))}
	for _, theme := range doc.Themes() {
		p := doc.Points[theme]
		out.Points = append(out.Points, PointInput{
			Theme:      p.Theme,
			Stance:     p.Stance,
			Confidence: p.Confidence,
			Evidence:   p.Evidence,
			Sources:    p.Sources,
		})
	}
	return out
}

// VersionOutput is a stored snapshot.
type VersionOutput struct {
	Slug      string        `json:"slug"`
	Version   int           `json:"version"`
	CreatedAt string        `json:"created_at"`
	Author    string        `json:"author"`
	Reason    string        `json:"reason"`
	Checksum  string        `json:"checksum"`
	Document  DocumentInput `json:"document"`
}

func versionOutput(v domain.Version) VersionOutput {
	return VersionOutput{
		Slug:      v.Slug,
		Version:   v.Number,
		CreatedAt: formatTime(v.CreatedAt),
		Author:    v.Author,
		Reason:    v.Reason,
		Checksum:  v.Checksum,
		Document:  documentInput(v.Document),
	}
}

// VersionInfoOutput is version metadata.
type VersionInfoOutput struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	Author    string `json:"author"`
	Reason    string `json:"reason"`
}

// SummaryOutput is a listing entry.
type SummaryOutput struct {
	Slug      string `json:"slug"`
	Subject   string `json:"subject"`
	Head      int    `json:"head"`
	Points    int    `json:"points"`
	UpdatedAt string `json:"updated_at"`
}

// DeletionOutput records one deleted document.
type DeletionOutput struct {
	Slug      string `json:"slug"`
	Versions  int    `json:"versions"`
	Author    string `json:"author"`
	Reason    string `json:"reason"`
	DeletedAt string `json:"deleted_at"`
}

func deletionOutputs(records []domain.DeletionRecord) []DeletionOutput {
	out := make([]DeletionOutput, len(records))
	for i, r := range records {
		out[i] = DeletionOutput{
			Slug:      r.Slug,
			Versions:  r.Versions,
			Author:    r.Author,
			Reason:    r.Reason,
			DeletedAt: formatTime(r.DeletedAt),
		}
	}
	return out
}

func summaryOutputs(summaries []domain.DocumentSummary) []SummaryOutput {
	out := make([]SummaryOutput, len(summaries))
	for i, s := range summaries {
		out[i] = SummaryOutput{
			Slug:      s.Slug,
			Subject:   s.Subject,
			Head:      s.Head,
			Points:    s.PointCount,
			UpdatedAt: formatTime(s.UpdatedAt),
		}
	}
	return out
}

// ChangeOutput is one patch operation.
type ChangeOutput struct {
	Path string `json:"path"`
	Op   string `json:"op"`
	Old  any    `json:"old,omitempty"`
	New  any    `json:"new,omitempty"`
}

func changeOutputs(changes []domain.Change) []ChangeOutput {
	out := make([]ChangeOutput, len(changes))
	for i, c := range changes {
		out[i] = ChangeOutput{
			Path: c.Path,
			Op:   string(c.Op),
			Old:  decodeRaw(c.OldValue),
			New:  decodeRaw(c.NewValue),
		}
	}
	return out
}

// EntryOutput is one audit ledger entry.
type EntryOutput struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Kind      string            `json:"kind"`
	Author    string            `json:"author"`
	Reason    string            `json:"reason"`
	Before    int               `json:"before"`
	After     int               `json:"after"`
	Changes   []ChangeOutput    `json:"changes"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Hash      string            `json:"hash"`
}

func entryOutput(e domain.AuditEntry) EntryOutput {
	return EntryOutput{
		ID:        e.ID,
		Timestamp: formatTime(e.Timestamp),
		Kind:      string(e.Kind),
		Author:    e.Author,
		Reason:    e.Reason,
		Before:    e.BeforeVersion(),
		After:     e.After,
		Changes:   changeOutputs(e.Changes),
		Metadata:  e.Metadata,
		Hash:      e.Hash,
	}
}

// ConflictOutput is one merge conflict.
type ConflictOutput struct {
	Path       string `json:"path"`
	Base       any    `json:"base"`
	Yours      any    `json:"yours"`
	Theirs     any    `json:"theirs"`
	Resolution string `json:"resolution"`
}

func decodeRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
