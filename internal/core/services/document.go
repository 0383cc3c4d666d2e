package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService saves and retrieves versioned documents.
//
// Saves to one slug are serialized by a per-slug lock held for the whole
// save; the store's compare-and-swap on the head catches writers in other
// processes, and a lost race is retried from scratch.
type DocumentService struct {
	store       driven.VersionStore
	metrics     driven.Metrics
	differ      *Differ
	locks       *KeyLock
	limiter     *rate.Limiter
	maxAttempts int

	now   func() time.Time
	newID func() string
}

// NewDocumentService creates a new document service.
// metrics may be nil.
func NewDocumentService(store driven.VersionStore, metrics driven.Metrics, settings domain.SaveSettings) *DocumentService {
	defaults := domain.DefaultAppSettings().Save
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.RetryPerSecond <= 0 {
		settings.RetryPerSecond = defaults.RetryPerSecond
	}
	return &DocumentService{
		store:       store,
		metrics:     metrics,
		differ:      NewDiffer(),
		locks:       NewKeyLock(),
		limiter:     rate.NewLimiter(rate.Limit(settings.RetryPerSecond), 1),
		maxAttempts: settings.MaxAttempts,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Save validates the document and commits it as the next version.
func (s *DocumentService) Save(ctx context.Context, req driving.SaveRequest) (*driving.SaveResult, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := ValidateDocument(req.Document); err != nil {
		return nil, err
	}
	if err := requireActor(req.Author, req.Reason); err != nil {
		return nil, err
	}

	doc := req.Document.Clone()
	slug := doc.Slug

	unlock := s.locks.Lock(slug)
	defer unlock()

	start := s.now()
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.trySave(ctx, doc, req)
		if err == nil {
			logger.Debug("saved %s@v%d (%s)", slug, result.Version, result.Summary)
			if s.metrics != nil {
				s.metrics.SaveCompleted(slug, attempt, s.now().Sub(start))
			}
			return result, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			s.recordFailure(slug, err)
			return nil, err
		}

		logger.Warn("version conflict saving %s (attempt %d/%d)", slug, attempt, s.maxAttempts)
		if s.metrics != nil {
			s.metrics.VersionConflict(slug)
		}
		if attempt < s.maxAttempts {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting to retry save: %w", err)
			}
		}
	}

	err := domain.NewRecordError("save", slug, 0,
		fmt.Errorf("%w: gave up after %d attempts", domain.ErrVersionConflict, s.maxAttempts))
	s.recordFailure(slug, err)
	return nil, err
}

// trySave performs one read-diff-commit cycle.
func (s *DocumentService) trySave(ctx context.Context, doc domain.Document, req driving.SaveRequest) (*driving.SaveResult, error) {
	slug := doc.Slug
	prev := domain.NewDocument(slug, "")
	var prevTime time.Time

	head, err := s.store.Head(ctx, slug)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		head = 0
	case err != nil:
		return nil, err
	default:
		v, err := s.store.GetVersion(ctx, slug, head)
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted between the two reads.
			return nil, domain.NewRecordError("save", slug, head, domain.ErrVersionConflict)
		}
		if err != nil {
			return nil, err
		}
		prev = v.Document
		prevTime = v.CreatedAt
	}

	changes, err := s.differ.Diff(prev, doc)
	if err != nil {
		return nil, domain.NewRecordError("diff", slug, head+1, err)
	}

	checksum, err := doc.Checksum()
	if err != nil {
		return nil, domain.NewRecordError("checksum", slug, head+1, err)
	}

	// Timestamps never run backwards within a document, so as-of
	// queries agree with version order even if the clock steps back.
	now := s.now().UTC()
	if now.Before(prevTime) {
		now = prevTime
	}

	next := head + 1
	entry := domain.AuditEntry{
		ID:        s.newID(),
		Slug:      slug,
		Timestamp: now,
		Kind:      domain.OpCreate,
		Author:    req.Author,
		Reason:    req.Reason,
		After:     next,
		Changes:   changes,
	}
	if head > 0 {
		before := head
		entry.Before = &before
		entry.Kind = domain.OpUpdate
	}
	if len(req.Metadata) > 0 {
		entry.Metadata = maps.Clone(req.Metadata)
	}

	commit := domain.Commit{
		Version: domain.Version{
			Slug:      slug,
			Number:    next,
			Document:  doc,
			CreatedAt: now,
			Author:    req.Author,
			Reason:    req.Reason,
			Checksum:  checksum,
		},
		Entry:        entry,
		ExpectedHead: head,
	}
	if err := s.store.Commit(ctx, commit); err != nil {
		return nil, err
	}

	return &driving.SaveResult{
		Version: next,
		Changes: changes,
		Summary: domain.Summarize(changes),
	}, nil
}

func (s *DocumentService) recordFailure(slug string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SaveFailed(slug, failureReason(err))
	if errors.Is(err, domain.ErrCorruptRecord) {
		s.metrics.CorruptRecord(slug)
	}
}

// failureReason maps an error onto a low-cardinality label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrIOFailure):
		return "io_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

// Get returns a snapshot; version 0 means the latest.
func (s *DocumentService) Get(ctx context.Context, slug string, version int) (*domain.Version, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	if version < 0 {
		return nil, fmt.Errorf("%w: version must be positive, got %d", domain.ErrInvalidInput, version)
	}
	if version == 0 {
		head, err := s.store.Head(ctx, slug)
		if err != nil {
			return nil, err
		}
		version = head
	}
	v, err := s.store.GetVersion(ctx, slug, version)
	if err != nil {
		s.noteCorruption(slug, err)
		return nil, err
	}
	return v, nil
}

func (s *DocumentService) noteCorruption(slug string, err error) {
	if s.metrics != nil && errors.Is(err, domain.ErrCorruptRecord) {
		s.metrics.CorruptRecord(slug)
	}
}

// ListVersions returns version metadata, newest first.
func (s *DocumentService) ListVersions(ctx context.Context, slug string) ([]domain.VersionInfo, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, slug)
}

// List returns a summary of every stored document.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.store.ListDocuments(ctx)
}

// Search matches a query against subjects and themes.
func (s *DocumentService) Search(ctx context.Context, query string) ([]domain.DocumentSummary, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput)
	}
	return s.store.SearchDocuments(ctx, query)
}

// Delete removes a document's whole history. It waits for any in-flight
// save on the slug to finish first.
func (s *DocumentService) Delete(ctx context.Context, slug, author, reason string) (*domain.DeletionRecord, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	if err := requireActor(author, reason); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(slug)
	defer unlock()

	rec, err := s.store.DeleteDocument(ctx, slug, author, reason)
	if err != nil {
		return nil, err
	}
	logger.Info("deleted %s (%d versions) by %s: %s", slug, rec.Versions, author, reason)
	return rec, nil
}

// Deletions returns the record of every deleted document, newest first.
func (s *DocumentService) Deletions(ctx context.Context) ([]domain.DeletionRecord, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.store.ListDeletions(ctx)
}
