package driving

import (
	"context"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// HistoryService answers questions about why and how a document changed.
type HistoryService interface {
	// History returns audit entries oldest first. A positive limit keeps
	// only the newest limit entries.
	History(ctx context.Context, slug string, limit int) ([]domain.AuditEntry, error)

	// Diff computes the ordered change list between two stored versions.
	Diff(ctx context.Context, slug string, from, to int) ([]domain.Change, error)

	// Replay rebuilds a version from the audit ledger alone.
	Replay(ctx context.Context, slug string, version int) (*domain.Document, error)

	// Verify checks every snapshot checksum, the ledger hash chain and
	// that replaying the ledger reproduces each snapshot.
	Verify(ctx context.Context, slug string) (*VerifyReport, error)
}

// VerifyReport summarises a successful integrity check.
type VerifyReport struct {
	Slug     string `json:"slug"`
	Versions int    `json:"versions"`
	Entries  int    `json:"entries"`
	HeadHash string `json:"head_hash"`
}
