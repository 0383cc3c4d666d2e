package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/logger"
)

// Ensure MergeService implements the interface.
var _ driving.MergeService = (*MergeService)(nil)

// MergeService merges collaborator edits against stored base versions.
type MergeService struct {
	store   driven.SnapshotStore
	metrics driven.Metrics

	mu     sync.RWMutex
	engine *MergeEngine
}

// NewMergeService creates a new merge service. metrics may be nil.
func NewMergeService(store driven.SnapshotStore, metrics driven.Metrics, resolution domain.Resolution) *MergeService {
	return &MergeService{
		store:   store,
		metrics: metrics,
		engine:  NewMergeEngine(resolution),
	}
}

// SetResolution changes the resolution applied to later merges.
func (s *MergeService) SetResolution(resolution domain.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = NewMergeEngine(resolution)
}

// Resolution returns the resolution currently applied.
func (s *MergeService) Resolution() domain.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Resolution()
}

// Merge three-way merges yours and theirs against the stored base version.
func (s *MergeService) Merge(ctx context.Context, slug string, baseVersion int, yours, theirs domain.Document) (*domain.MergeResult, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if baseVersion < 1 {
		return nil, fmt.Errorf("%w: base version must be at least 1", domain.ErrInvalidInput)
	}
	sides := []struct {
		name string
		doc  domain.Document
	}{{"yours", yours}, {"theirs", theirs}}
	for _, side := range sides {
		if err := ValidateDocument(side.doc); err != nil {
			return nil, fmt.Errorf("%s: %w", side.name, err)
		}
		if side.doc.Slug != slug {
			return nil, fmt.Errorf("%w: %s document has slug %q, want %q",
				domain.ErrInvalidInput, side.name, side.doc.Slug, slug)
		}
	}

	base, err := s.store.GetVersion(ctx, slug, baseVersion)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	result, err := engine.Merge(base.Document, yours, theirs)
	if err != nil {
		return nil, domain.NewRecordError("merge", slug, baseVersion, err)
	}
	result.BaseVersion = baseVersion

	if result.HasConflicts() {
		logger.Warn("merge of %s against v%d has %d conflict(s), resolved %s-side pending review",
			slug, baseVersion, len(result.Conflicts), engine.Resolution())
	}
	if s.metrics != nil {
		s.metrics.MergeCompleted(slug, len(result.Conflicts))
	}
	return &result, nil
}
