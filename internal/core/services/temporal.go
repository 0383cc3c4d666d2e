package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// Ensure TemporalService implements the interface.
var _ driving.TemporalService = (*TemporalService)(nil)

// TemporalService answers point-in-time queries from the version index.
type TemporalService struct {
	store driven.SnapshotStore
}

// NewTemporalService creates a new temporal query service.
func NewTemporalService(store driven.SnapshotStore) *TemporalService {
	return &TemporalService{store: store}
}

// AsOf returns the highest version whose creation time is at or before t.
func (s *TemporalService) AsOf(ctx context.Context, slug string, t time.Time) (*domain.Version, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	infos, err := s.store.ListVersions(ctx, slug)
	if err != nil {
		return nil, err
	}

	best := 0
	for _, info := range infos {
		if !info.CreatedAt.After(t) && info.Number > best {
			best = info.Number
		}
	}
	if best == 0 {
		return nil, domain.NewRecordError("as-of", slug, 0,
			fmt.Errorf("%w: no version at or before %s", domain.ErrNotFound, t.UTC().Format(time.RFC3339Nano)))
	}
	return s.store.GetVersion(ctx, slug, best)
}

// Range returns every version created within [from, to], ascending.
func (s *TemporalService) Range(ctx context.Context, slug string, from, to time.Time) ([]domain.Version, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: range start is after its end", domain.ErrInvalidInput)
	}
	infos, err := s.store.ListVersions(ctx, slug)
	if err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(infos))
	for _, info := range infos {
		if !info.CreatedAt.Before(from) && !info.CreatedAt.After(to) {
			numbers = append(numbers, info.Number)
		}
	}
	sort.Ints(numbers)

	versions := make([]domain.Version, 0, len(numbers))
	for _, n := range numbers {
		v, err := s.store.GetVersion(ctx, slug, n)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, nil
}
