package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/logger"
)

// Key layout. Slugs never contain '/', so each prefix scan is exact.
//
//	idx/<slug>             index record (head, subject, timestamps)
//	ver/<slug>/<number>    version JSON
//	log/<slug>/<number>    audit entry JSON
//	del/<nanos>/<slug>     deletion record JSON
//	aid/<entry id>         slug owning the audit entry ID
const (
	prefixIndex    = "idx/"
	prefixVersion  = "ver/"
	prefixLedger   = "log/"
	prefixDeletion = "del/"
	prefixEntryID  = "aid/"
)

func indexKey(slug string) []byte { return []byte(prefixIndex + slug) }

func versionKey(slug string, n int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", prefixVersion, slug, n))
}

func ledgerKey(slug string, n int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", prefixLedger, slug, n))
}

func entryIDKey(id string) []byte { return []byte(prefixEntryID + id) }

func deletionKey(at time.Time, slug string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", prefixDeletion, at.UnixNano(), slug))
}

// indexRecord is the version index entry for one document.
type indexRecord struct {
	Head       int       `json:"head"`
	Subject    string    `json:"subject"`
	PointCount int       `json:"point_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	HeadHash   string    `json:"head_hash"`
}

// Store is a badger-backed implementation of driven.VersionStore.
// Commits run in badger's optimistic transactions: a concurrent commit
// that touched the same index key fails with badger.ErrConflict, which is
// reported as domain.ErrVersionConflict.
type Store struct {
	db  *badger.DB
	now func() time.Time

	stopGC    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
}

var _ driven.VersionStore = (*Store)(nil)

// NewStore opens a badger store.
func NewStore(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing worth collecting.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Warn("badger value log GC: %v", err)
			}
		}
	}
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		err = s.db.Close()
	})
	return err
}

// getJSON reads key into v. Returns badger.ErrKeyNotFound if absent and
// domain.ErrCorruptRecord if the value does not decode.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrCorruptRecord, key, err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func (s *Store) index(txn *badger.Txn, slug string) (*indexRecord, error) {
	var rec indexRecord
	err := getJSON(txn, indexKey(slug), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Head returns the highest committed version of a document.
func (s *Store) Head(_ context.Context, slug string) (int, error) {
	var head int
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := s.index(txn, slug)
		if err != nil {
			return err
		}
		head = rec.Head
		return nil
	})
	if err != nil {
		return 0, readError("head", slug, 0, err)
	}
	return head, nil
}

// GetVersion retrieves one version, verified against its checksum.
func (s *Store) GetVersion(_ context.Context, slug string, version int) (*domain.Version, error) {
	var v domain.Version
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, versionKey(slug, version), &v)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, readError("get", slug, version, err)
	}
	if v.Slug != slug || v.Number != version {
		return nil, domain.CorruptError("get", slug, version, "record stored under the wrong key")
	}
	if err := v.Verify(); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns version metadata, newest first.
func (s *Store) ListVersions(_ context.Context, slug string) ([]domain.VersionInfo, error) {
	var infos []domain.VersionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixVersion+slug+"/"), func(val []byte) error {
			var v domain.Version
			if err := json.Unmarshal(val, &v); err != nil {
				return domain.CorruptError("list versions", slug, 0, err.Error())
			}
			infos = append(infos, v.Info())
			return nil
		})
	})
	if err != nil {
		return nil, readError("list versions", slug, 0, err)
	}
	if len(infos) == 0 {
		return nil, domain.NewRecordError("list versions", slug, 0, domain.ErrNotFound)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Number > infos[j].Number })
	return infos, nil
}

// scanPrefix calls fn with every value under prefix in key order.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// keysWithPrefix returns copies of every key under prefix.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// ListDocuments returns a summary of every document, most recently
// updated first.
func (s *Store) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return s.summaries(func(*badger.Txn, string) (bool, error) { return true, nil })
}

// SearchDocuments matches a case-insensitive substring against subjects
// and themes of each document's latest version.
func (s *Store) SearchDocuments(_ context.Context, query string) ([]domain.DocumentSummary, error) {
	return s.summaries(func(txn *badger.Txn, slug string) (bool, error) {
		head, err := s.index(txn, slug)
		if err != nil {
			return false, err
		}
		var v domain.Version
		if err := getJSON(txn, versionKey(slug, head.Head), &v); err != nil {
			return false, err
		}
		return v.Document.Matches(query), nil
	})
}

func (s *Store) summaries(match func(txn *badger.Txn, slug string) (bool, error)) ([]domain.DocumentSummary, error) {
	result := []domain.DocumentSummary{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keysWithPrefix(txn, []byte(prefixIndex)) {
			slug := strings.TrimPrefix(string(key), prefixIndex)
			ok, err := match(txn, slug)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			rec, err := s.index(txn, slug)
			if err != nil {
				return err
			}
			result = append(result, domain.DocumentSummary{
				Slug:       slug,
				Subject:    rec.Subject,
				Head:       rec.Head,
				PointCount: rec.PointCount,
				CreatedAt:  rec.CreatedAt,
				UpdatedAt:  rec.UpdatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, readError("list documents", "", 0, err)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].Slug < result[j].Slug
	})
	return result, nil
}

// ReadLedger returns every audit entry for a slug, oldest first.
func (s *Store) ReadLedger(_ context.Context, slug string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixLedger+slug+"/"), func(val []byte) error {
			var e domain.AuditEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return domain.CorruptError("read ledger", slug, 0, err.Error())
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, readError("read ledger", slug, 0, err)
	}
	if len(entries) == 0 {
		return nil, domain.NewRecordError("read ledger", slug, 0, domain.ErrNotFound)
	}
	return entries, nil
}

// Commit writes the snapshot, the index record and the audit entry in one
// optimistic transaction.
func (s *Store) Commit(_ context.Context, c domain.Commit) error {
	v := c.Version
	slug := v.Slug
	if v.Number != c.ExpectedHead+1 || c.Entry.After != v.Number || c.Entry.Slug != slug {
		return fmt.Errorf("%w: malformed commit for %s@v%d", domain.ErrInvalidInput, slug, v.Number)
	}
	v.Document = v.Document.Clone()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := s.index(txn, slug)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			rec = &indexRecord{CreatedAt: v.CreatedAt}
		case err != nil:
			return err
		}
		if rec.Head != c.ExpectedHead {
			return domain.ErrVersionConflict
		}

		entry := c.Entry
		if err := entry.Seal(rec.HeadHash); err != nil {
			return err
		}
		switch _, err := txn.Get(entryIDKey(entry.ID)); {
		case err == nil:
			return fmt.Errorf("audit entry id %q already recorded", entry.ID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		rec.Head = v.Number
		rec.Subject = v.Document.Subject
		rec.PointCount = len(v.Document.Points)
		rec.UpdatedAt = v.CreatedAt
		rec.HeadHash = entry.Hash

		if err := setJSON(txn, versionKey(slug, v.Number), v); err != nil {
			return err
		}
		if err := setJSON(txn, ledgerKey(slug, v.Number), entry); err != nil {
			return err
		}
		if err := txn.Set(entryIDKey(entry.ID), []byte(slug)); err != nil {
			return err
		}
		return setJSON(txn, indexKey(slug), rec)
	})
	return writeError("commit", slug, v.Number, err)
}

// DeleteDocument removes a document's entire history in one transaction.
func (s *Store) DeleteDocument(_ context.Context, slug, author, reason string) (*domain.DeletionRecord, error) {
	var out *domain.DeletionRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := s.index(txn, slug)
		if err != nil {
			return err
		}

		keys := keysWithPrefix(txn, []byte(prefixVersion+slug+"/"))
		keys = append(keys, keysWithPrefix(txn, []byte(prefixLedger+slug+"/"))...)
		err = scanPrefix(txn, []byte(prefixLedger+slug+"/"), func(val []byte) error {
			var entry domain.AuditEntry
			if err := json.Unmarshal(val, &entry); err != nil {
				return domain.CorruptError("delete", slug, 0, err.Error())
			}
			keys = append(keys, entryIDKey(entry.ID))
			return nil
		})
		if err != nil {
			return err
		}
		keys = append(keys, indexKey(slug))
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		del := domain.DeletionRecord{
			Slug:      slug,
			Versions:  rec.Head,
			Author:    author,
			Reason:    reason,
			DeletedAt: s.now().UTC(),
		}
		if err := setJSON(txn, deletionKey(del.DeletedAt, slug), del); err != nil {
			return err
		}
		out = &del
		return nil
	})
	if err != nil {
		return nil, writeError("delete", slug, 0, err)
	}
	return out, nil
}

// ListDeletions returns deletion records, newest first.
func (s *Store) ListDeletions(_ context.Context) ([]domain.DeletionRecord, error) {
	result := []domain.DeletionRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixDeletion), func(val []byte) error {
			var rec domain.DeletionRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return domain.CorruptError("list deletions", "", 0, err.Error())
			}
			result = append(result, rec)
			return nil
		})
	})
	if err != nil {
		return nil, readError("list deletions", "", 0, err)
	}
	// Keys sort oldest first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// readError attaches slug context to domain errors and treats anything
// else as an I/O failure.
func readError(op, slug string, version int, err error) error {
	var recErr *domain.RecordError
	switch {
	case errors.As(err, &recErr):
		return err
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCorruptRecord):
		return domain.NewRecordError(op, slug, version, err)
	default:
		return domain.IOError(op, slug, version, err)
	}
}

// writeError is readError plus the mapping of transaction conflicts.
func writeError(op, slug string, version int, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrVersionConflict):
		return domain.NewRecordError(op, slug, version, err)
	case errors.Is(err, badger.ErrConflict):
		return domain.NewRecordError(op, slug, version, fmt.Errorf("%w: %v", domain.ErrVersionConflict, err))
	default:
		return readError(op, slug, version, err)
	}
}
