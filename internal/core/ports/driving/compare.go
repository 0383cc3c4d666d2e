package driving

import (
	"context"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// CompareService compares the latest snapshots of different documents.
type CompareService interface {
	// Compare matches two documents theme by theme.
	Compare(ctx context.Context, slugA, slugB string) (*domain.Comparison, error)

	// Blindspots lists themes the other documents address that target lacks.
	Blindspots(ctx context.Context, target string, others []string) ([]domain.Blindspot, error)
}
