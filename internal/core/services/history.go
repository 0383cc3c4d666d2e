package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/logger"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService reads the audit ledger and diffs stored versions.
type HistoryService struct {
	store   driven.VersionStore
	metrics driven.Metrics
	differ  *Differ
}

// NewHistoryService creates a new history service. metrics may be nil.
func NewHistoryService(store driven.VersionStore, metrics driven.Metrics) *HistoryService {
	return &HistoryService{
		store:   store,
		metrics: metrics,
		differ:  NewDiffer(),
	}
}

// History returns verified audit entries, oldest first.
func (s *HistoryService) History(ctx context.Context, slug string, limit int) ([]domain.AuditEntry, error) {
	entries, err := s.ledger(ctx, slug)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// ledger reads the full ledger and checks its hash chain.
func (s *HistoryService) ledger(ctx context.Context, slug string) ([]domain.AuditEntry, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	entries, err := s.store.ReadLedger(ctx, slug)
	if err != nil {
		s.noteCorruption(slug, err)
		return nil, err
	}
	if err := domain.VerifyLedger(slug, entries); err != nil {
		s.noteCorruption(slug, err)
		return nil, err
	}
	return entries, nil
}

func (s *HistoryService) noteCorruption(slug string, err error) {
	if errors.Is(err, domain.ErrCorruptRecord) {
		logger.Warn("integrity failure on %s: %v", slug, err)
		if s.metrics != nil {
			s.metrics.CorruptRecord(slug)
		}
	}
}

// Diff computes the change list from one stored version to another.
func (s *HistoryService) Diff(ctx context.Context, slug string, from, to int) ([]domain.Change, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	if from < 1 || to < 1 {
		return nil, fmt.Errorf("%w: versions start at 1", domain.ErrInvalidInput)
	}
	a, err := s.store.GetVersion(ctx, slug, from)
	if err != nil {
		s.noteCorruption(slug, err)
		return nil, err
	}
	b, err := s.store.GetVersion(ctx, slug, to)
	if err != nil {
		s.noteCorruption(slug, err)
		return nil, err
	}
	return s.differ.Diff(a.Document, b.Document)
}

// Replay rebuilds a version by applying ledger change lists in order,
// starting from an empty document. Version 0 replays the whole ledger.
func (s *HistoryService) Replay(ctx context.Context, slug string, version int) (*domain.Document, error) {
	entries, err := s.ledger(ctx, slug)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = len(entries)
	}
	if version < 0 || version > len(entries) {
		return nil, domain.NewRecordError("replay", slug, version, domain.ErrNotFound)
	}

	doc, err := s.replay(slug, entries[:version])
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *HistoryService) replay(slug string, entries []domain.AuditEntry) (domain.Document, error) {
	doc := domain.NewDocument(slug, "")
	for _, e := range entries {
		next, err := s.differ.Apply(doc, e.Changes)
		if err != nil {
			return domain.Document{}, domain.CorruptError("replay", slug, e.After, err.Error())
		}
		doc = next
	}
	return doc, nil
}

// Verify checks snapshot checksums, the ledger chain and that the ledger
// replays to every stored snapshot.
func (s *HistoryService) Verify(ctx context.Context, slug string) (*driving.VerifyReport, error) {
	entries, err := s.ledger(ctx, slug)
	if err != nil {
		return nil, err
	}
	head, err := s.store.Head(ctx, slug)
	if err != nil {
		return nil, err
	}
	if head != len(entries) {
		err := domain.CorruptError("verify", slug, head,
			fmt.Sprintf("head is v%d but ledger holds %d entries", head, len(entries)))
		s.noteCorruption(slug, err)
		return nil, err
	}

	doc := domain.NewDocument(slug, "")
	for _, e := range entries {
		doc, err = s.differ.Apply(doc, e.Changes)
		if err != nil {
			err = domain.CorruptError("verify", slug, e.After, err.Error())
			s.noteCorruption(slug, err)
			return nil, err
		}
		v, err := s.store.GetVersion(ctx, slug, e.After)
		if err != nil {
			s.noteCorruption(slug, err)
			return nil, err
		}
		if !v.Document.Equal(doc) {
			err := domain.CorruptError("verify", slug, e.After, "snapshot differs from ledger replay")
			s.noteCorruption(slug, err)
			return nil, err
		}
	}

	report := &driving.VerifyReport{
		Slug:     slug,
		Versions: head,
		Entries:  len(entries),
	}
	if len(entries) > 0 {
		report.HeadHash = entries[len(entries)-1].Hash
	}
	return report, nil
}
