package driving

import (
	"context"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// SaveRequest is a candidate document submitted by a collaborator.
type SaveRequest struct {
	// Document is copied into the store; the caller keeps ownership.
	Document domain.Document

	// Author identifies who made the change.
	Author string

	// Reason is a human-readable explanation of the mutation.
	Reason string

	// Metadata is recorded verbatim on the audit entry.
	Metadata map[string]string
}

// SaveResult reports the version a save produced.
type SaveResult struct {
	Version int                  `json:"version"`
	Changes []domain.Change      `json:"changes"`
	Summary domain.ChangeSummary `json:"summary"`
}

// DocumentService saves and retrieves versioned documents.
type DocumentService interface {
	// Save validates the document and commits it as the next version of
	// its slug, together with its audit entry.
	Save(ctx context.Context, req SaveRequest) (*SaveResult, error)

	// Get returns a snapshot. Version 0 means the latest; an unknown
	// version is domain.ErrNotFound, never the latest.
	Get(ctx context.Context, slug string, version int) (*domain.Version, error)

	// ListVersions returns version metadata, newest first.
	ListVersions(ctx context.Context, slug string) ([]domain.VersionInfo, error)

	// List returns a summary of every stored document.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Search matches a query against subjects and themes.
	Search(ctx context.Context, query string) ([]domain.DocumentSummary, error)

	// Delete removes a document's whole history.
	Delete(ctx context.Context, slug, author, reason string) (*domain.DeletionRecord, error)

	// Deletions returns the record of every deleted document, newest first.
	Deletions(ctx context.Context) ([]domain.DeletionRecord, error)
}
