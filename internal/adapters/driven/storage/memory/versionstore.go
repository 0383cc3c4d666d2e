package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// VersionStore is an in-memory implementation of driven.VersionStore.
// Nothing is persisted; it backs tests and the memory backend.
type VersionStore struct {
	mu        sync.RWMutex
	versions  map[string][]domain.Version
	ledger    map[string][]domain.AuditEntry
	entryIDs  map[string]string // audit entry ID -> owning slug
	deletions []domain.DeletionRecord
	now       func() time.Time
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		versions: make(map[string][]domain.Version),
		ledger:   make(map[string][]domain.AuditEntry),
		entryIDs: make(map[string]string),
		now:      time.Now,
	}
}

// Head returns the highest committed version of a document.
func (s *VersionStore) Head(_ context.Context, slug string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[slug]
	if !ok {
		return 0, domain.NewRecordError("head", slug, 0, domain.ErrNotFound)
	}
	return len(versions), nil
}

// GetVersion retrieves one version, verified against its checksum.
func (s *VersionStore) GetVersion(_ context.Context, slug string, version int) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[slug]
	if version < 1 || version > len(versions) {
		return nil, domain.NewRecordError("get", slug, version, domain.ErrNotFound)
	}
	v := versions[version-1]
	v.Document = v.Document.Clone()
	if err := v.Verify(); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns version metadata, newest first.
func (s *VersionStore) ListVersions(_ context.Context, slug string) ([]domain.VersionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[slug]
	if !ok {
		return nil, domain.NewRecordError("list versions", slug, 0, domain.ErrNotFound)
	}
	infos := make([]domain.VersionInfo, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		infos = append(infos, versions[i].Info())
	}
	return infos, nil
}

// ListDocuments returns a summary of every document, most recently
// updated first.
func (s *VersionStore) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return s.summaries(func(domain.Document) bool { return true }), nil
}

// SearchDocuments matches a case-insensitive substring against subjects
// and themes of each document's latest version.
func (s *VersionStore) SearchDocuments(_ context.Context, query string) ([]domain.DocumentSummary, error) {
	return s.summaries(func(d domain.Document) bool { return d.Matches(query) }), nil
}

func (s *VersionStore) summaries(match func(domain.Document) bool) []domain.DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.DocumentSummary, 0, len(s.versions))
	for _, versions := range s.versions {
		head := versions[len(versions)-1]
		if match(head.Document) {
			result = append(result, head.Summary(versions[0].CreatedAt))
		}
	}
	sortSummaries(result)
	return result
}

// sortSummaries orders by update time, newest first, then by slug.
func sortSummaries(s []domain.DocumentSummary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].Slug < s[j].Slug
	})
}

// ReadLedger returns every audit entry for a slug, oldest first.
func (s *VersionStore) ReadLedger(_ context.Context, slug string) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.ledger[slug]
	if !ok {
		return nil, domain.NewRecordError("read ledger", slug, 0, domain.ErrNotFound)
	}
	out := make([]domain.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Commit appends the version and its audit entry under the store lock.
func (s *VersionStore) Commit(_ context.Context, c domain.Commit) error {
	slug := c.Version.Slug
	if c.Version.Number != c.ExpectedHead+1 || c.Entry.After != c.Version.Number || c.Entry.Slug != slug {
		return fmt.Errorf("%w: malformed commit for %s@v%d", domain.ErrInvalidInput, slug, c.Version.Number)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.versions[slug]
	if len(versions) != c.ExpectedHead {
		return domain.NewRecordError("commit", slug, c.Version.Number, domain.ErrVersionConflict)
	}

	prevHash := ""
	if entries := s.ledger[slug]; len(entries) > 0 {
		prevHash = entries[len(entries)-1].Hash
	}
	entry := c.Entry
	if err := entry.Seal(prevHash); err != nil {
		return domain.IOError("commit", slug, c.Version.Number, err)
	}
	if _, taken := s.entryIDs[entry.ID]; taken {
		return domain.IOError("commit", slug, c.Version.Number,
			fmt.Errorf("audit entry id %q already recorded", entry.ID))
	}

	v := c.Version
	v.Document = v.Document.Clone()
	s.versions[slug] = append(versions, v)
	s.ledger[slug] = append(s.ledger[slug], entry)
	s.entryIDs[entry.ID] = slug
	return nil
}

// DeleteDocument removes a document's entire history.
func (s *VersionStore) DeleteDocument(_ context.Context, slug, author, reason string) (*domain.DeletionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.versions[slug]
	if !ok {
		return nil, domain.NewRecordError("delete", slug, 0, domain.ErrNotFound)
	}
	rec := domain.DeletionRecord{
		Slug:      slug,
		Versions:  len(versions),
		Author:    author,
		Reason:    reason,
		DeletedAt: s.now().UTC(),
	}
	for _, entry := range s.ledger[slug] {
		delete(s.entryIDs, entry.ID)
	}
	delete(s.versions, slug)
	delete(s.ledger, slug)
	s.deletions = append(s.deletions, rec)
	return &rec, nil
}

// ListDeletions returns deletion records, newest first.
func (s *VersionStore) ListDeletions(_ context.Context) ([]domain.DeletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DeletionRecord, 0, len(s.deletions))
	for i := len(s.deletions) - 1; i >= 0; i-- {
		out = append(out, s.deletions[i])
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *VersionStore) Close() error {
	return nil
}
