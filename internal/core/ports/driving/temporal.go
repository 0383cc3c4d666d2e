package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// TemporalService answers point-in-time queries.
type TemporalService interface {
	// AsOf returns the highest version created at or before t.
	// Returns domain.ErrNotFound when t predates the document.
	AsOf(ctx context.Context, slug string, t time.Time) (*domain.Version, error)

	// Range returns every version created within [from, to], ascending.
	Range(ctx context.Context, slug string, from, to time.Time) ([]domain.Version, error)
}
