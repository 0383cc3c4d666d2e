package driven

import (
	"context"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// SnapshotStore reads persisted snapshots and the version index.
// Every read returns a fully written record or an error; records that
// fail their checksum are reported as domain.ErrCorruptRecord.
type SnapshotStore interface {
	// Head returns the highest committed version of a document.
	// Returns domain.ErrNotFound for an unknown slug.
	Head(ctx context.Context, slug string) (int, error)

	// GetVersion retrieves one version, verified against its checksum.
	GetVersion(ctx context.Context, slug string, version int) (*domain.Version, error)

	// ListVersions returns version metadata, newest first.
	ListVersions(ctx context.Context, slug string) ([]domain.VersionInfo, error)

	// ListDocuments returns a summary of every stored document,
	// most recently updated first.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// SearchDocuments matches a query against subjects and themes.
	SearchDocuments(ctx context.Context, query string) ([]domain.DocumentSummary, error)
}

// AuditLedger reads the append-only mutation log. Appends happen only
// through VersionStore.Commit; there is no edit or truncate operation.
type AuditLedger interface {
	// ReadLedger returns every entry for a slug, oldest first.
	ReadLedger(ctx context.Context, slug string) ([]domain.AuditEntry, error)
}

// VersionStore persists versions and their audit entries.
type VersionStore interface {
	SnapshotStore
	AuditLedger

	// Commit writes the snapshot, advances the version index and appends
	// the audit entry as one atomic unit. The entry is sealed into the
	// slug's hash chain by the store. Returns domain.ErrVersionConflict
	// when the stored head is not commit.ExpectedHead.
	Commit(ctx context.Context, commit domain.Commit) error

	// DeleteDocument removes a document's entire history atomically and
	// returns a record of the deletion.
	DeleteDocument(ctx context.Context, slug, author, reason string) (*domain.DeletionRecord, error)

	// ListDeletions returns deletion records, newest first.
	ListDeletions(ctx context.Context) ([]domain.DeletionRecord, error)

	// Close releases underlying resources.
	Close() error
}
