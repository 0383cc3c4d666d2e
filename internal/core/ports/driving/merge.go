package driving

import (
	"context"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// MergeService reconciles concurrent edits against a stored base version.
type MergeService interface {
	// Merge three-way merges yours and theirs against the stored base
	// version. Conflicts are returned in the result, never hidden.
	Merge(ctx context.Context, slug string, baseVersion int, yours, theirs domain.Document) (*domain.MergeResult, error)
}
