package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
)

// versionStore implements driven.VersionStore.
type versionStore struct {
	store *Store
}

var _ driven.VersionStore = (*versionStore)(nil)

// Head returns the highest committed version of a document.
func (s *versionStore) Head(ctx context.Context, slug string) (int, error) {
	var head int
	err := s.store.db.QueryRowContext(ctx, "SELECT head FROM documents WHERE slug = ?", slug).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewRecordError("head", slug, 0, domain.ErrNotFound)
	}
	if err != nil {
		return 0, domain.IOError("head", slug, 0, err)
	}
	return head, nil
}

// GetVersion retrieves one version, verified against its checksum.
func (s *versionStore) GetVersion(ctx context.Context, slug string, version int) (*domain.Version, error) {
	var (
		snapshot  string
		createdAt int64
	)
	v := domain.Version{Slug: slug, Number: version}
	err := s.store.db.QueryRowContext(ctx, `
		SELECT snapshot, checksum, author, reason, created_at
		FROM versions WHERE slug = ? AND number = ?
	`, slug, version).Scan(&snapshot, &v.Checksum, &v.Author, &v.Reason, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewRecordError("get", slug, version, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.IOError("get", slug, version, err)
	}

	if err := json.Unmarshal([]byte(snapshot), &v.Document); err != nil {
		return nil, domain.CorruptError("get", slug, version, "unreadable snapshot: "+err.Error())
	}
	v.CreatedAt = fromNanos(createdAt)
	if err := v.Verify(); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns version metadata, newest first.
func (s *versionStore) ListVersions(ctx context.Context, slug string) ([]domain.VersionInfo, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT number, checksum, author, reason, created_at
		FROM versions WHERE slug = ?
		ORDER BY number DESC
	`, slug)
	if err != nil {
		return nil, domain.IOError("list versions", slug, 0, err)
	}
	defer rows.Close()

	var infos []domain.VersionInfo
	for rows.Next() {
		info := domain.VersionInfo{Slug: slug}
		var createdAt int64
		if err := rows.Scan(&info.Number, &info.Checksum, &info.Author, &info.Reason, &createdAt); err != nil {
			return nil, domain.IOError("list versions", slug, 0, err)
		}
		info.CreatedAt = fromNanos(createdAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("list versions", slug, 0, err)
	}
	if len(infos) == 0 {
		return nil, domain.NewRecordError("list versions", slug, 0, domain.ErrNotFound)
	}
	return infos, nil
}

// ListDocuments returns a summary of every document, most recently
// updated first.
func (s *versionStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	return s.querySummaries(ctx, `
		SELECT slug, subject, head, point_count, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC, slug ASC
	`)
}

// SearchDocuments runs a prefix phrase query against the full-text index.
func (s *versionStore) SearchDocuments(ctx context.Context, query string) ([]domain.DocumentSummary, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []domain.DocumentSummary{}, nil
	}
	return s.querySummaries(ctx, `
		SELECT d.slug, d.subject, d.head, d.point_count, d.created_at, d.updated_at
		FROM documents_fts f
		JOIN documents d ON d.slug = f.slug
		WHERE documents_fts MATCH ?
		ORDER BY d.updated_at DESC, d.slug ASC
	`, ftsPhrase(q))
}

// ftsPhrase quotes the query as a single FTS5 prefix phrase so that
// operator characters in user input are matched literally.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"*`
}

func (s *versionStore) querySummaries(ctx context.Context, query string, args ...any) ([]domain.DocumentSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.IOError("list documents", "", 0, err)
	}
	defer rows.Close()

	result := []domain.DocumentSummary{}
	for rows.Next() {
		var (
			sum                  domain.DocumentSummary
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&sum.Slug, &sum.Subject, &sum.Head, &sum.PointCount, &createdAt, &updatedAt); err != nil {
			return nil, domain.IOError("list documents", "", 0, err)
		}
		sum.CreatedAt = fromNanos(createdAt)
		sum.UpdatedAt = fromNanos(updatedAt)
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("list documents", "", 0, err)
	}
	return result, nil
}

// ReadLedger returns every audit entry for a slug, oldest first.
func (s *versionStore) ReadLedger(ctx context.Context, slug string) ([]domain.AuditEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, timestamp, kind, author, reason, before_version, after_version,
		       changes, metadata, prev_hash, hash
		FROM audit_entries WHERE slug = ?
		ORDER BY after_version ASC
	`, slug)
	if err != nil {
		return nil, domain.IOError("read ledger", slug, 0, err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e         = domain.AuditEntry{Slug: slug}
			ts        int64
			before    sql.NullInt64
			changes   string
			metadata  sql.NullString
			entryKind string
		)
		if err := rows.Scan(&e.ID, &ts, &entryKind, &e.Author, &e.Reason, &before, &e.After,
			&changes, &metadata, &e.PrevHash, &e.Hash); err != nil {
			return nil, domain.IOError("read ledger", slug, 0, err)
		}
		e.Timestamp = fromNanos(ts)
		e.Kind = domain.OperationKind(entryKind)
		if before.Valid {
			b := int(before.Int64)
			e.Before = &b
		}
		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, domain.CorruptError("read ledger", slug, e.After, "unreadable changes: "+err.Error())
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, domain.CorruptError("read ledger", slug, e.After, "unreadable metadata: "+err.Error())
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("read ledger", slug, 0, err)
	}
	if len(entries) == 0 {
		return nil, domain.NewRecordError("read ledger", slug, 0, domain.ErrNotFound)
	}
	return entries, nil
}

// Commit writes the snapshot, the index update and the audit entry in a
// single immediate transaction. The head update is conditional on the
// head the writer observed.
func (s *versionStore) Commit(ctx context.Context, c domain.Commit) error {
	v := c.Version
	slug := v.Slug
	if v.Number != c.ExpectedHead+1 || c.Entry.After != v.Number || c.Entry.Slug != slug {
		return fmt.Errorf("%w: malformed commit for %s@v%d", domain.ErrInvalidInput, slug, v.Number)
	}

	snapshot, err := json.Marshal(v.Document.Clone())
	if err != nil {
		return domain.IOError("commit", slug, v.Number, err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var head int
		err := tx.QueryRowContext(ctx, "SELECT head FROM documents WHERE slug = ?", slug).Scan(&head)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if head != c.ExpectedHead {
			return domain.ErrVersionConflict
		}

		prevHash := ""
		if head > 0 {
			err := tx.QueryRowContext(ctx,
				"SELECT hash FROM audit_entries WHERE slug = ? AND after_version = ?", slug, head,
			).Scan(&prevHash)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.CorruptError("commit", slug, head, "head has no audit entry")
			}
			if err != nil {
				return err
			}
		}
		entry := c.Entry
		if err := entry.Seal(prevHash); err != nil {
			return err
		}

		if head == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO documents (slug, subject, head, point_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, slug, v.Document.Subject, v.Number, len(v.Document.Points),
				v.CreatedAt.UnixNano(), v.CreatedAt.UnixNano())
		} else {
			var res sql.Result
			res, err = tx.ExecContext(ctx, `
				UPDATE documents SET subject = ?, head = ?, point_count = ?, updated_at = ?
				WHERE slug = ? AND head = ?
			`, v.Document.Subject, v.Number, len(v.Document.Points), v.CreatedAt.UnixNano(),
				slug, c.ExpectedHead)
			if err == nil {
				if n, _ := res.RowsAffected(); n != 1 {
					return domain.ErrVersionConflict
				}
			}
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO versions (slug, number, snapshot, checksum, author, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, slug, v.Number, string(snapshot), v.Checksum, v.Author, v.Reason, v.CreatedAt.UnixNano()); err != nil {
			return err
		}

		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return reindex(ctx, tx, v.Document)
	})
	return commitError("commit", slug, v.Number, err)
}

func insertEntry(ctx context.Context, tx *sql.Tx, e domain.AuditEntry) error {
	changes := e.Changes
	if changes == nil {
		changes = []domain.Change{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	var metadata sql.NullString
	if e.Metadata != nil {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	var before sql.NullInt64
	if e.Before != nil {
		before = sql.NullInt64{Int64: int64(*e.Before), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries (id, slug, timestamp, kind, author, reason, before_version,
		                           after_version, changes, metadata, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Slug, e.Timestamp.UnixNano(), string(e.Kind), e.Author, e.Reason, before,
		e.After, string(changesJSON), metadata, e.PrevHash, e.Hash)
	return err
}

// reindex replaces the full-text row for a document.
func reindex(ctx context.Context, tx *sql.Tx, doc domain.Document) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents_fts WHERE slug = ?", doc.Slug); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO documents_fts (slug, subject, themes) VALUES (?, ?, ?)",
		doc.Slug, doc.Subject, strings.Join(doc.Themes(), "\n"))
	return err
}

// DeleteDocument removes a document's entire history atomically.
func (s *versionStore) DeleteDocument(ctx context.Context, slug, author, reason string) (*domain.DeletionRecord, error) {
	rec := &domain.DeletionRecord{
		Slug:      slug,
		Author:    author,
		Reason:    reason,
		DeletedAt: time.Now().UTC(),
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT head FROM documents WHERE slug = ?", slug).Scan(&rec.Versions)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM documents_fts WHERE slug = ?",
			"DELETE FROM audit_entries WHERE slug = ?",
			"DELETE FROM versions WHERE slug = ?",
			"DELETE FROM documents WHERE slug = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, slug); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO deletions (slug, versions, author, reason, deleted_at)
			VALUES (?, ?, ?, ?, ?)
		`, slug, rec.Versions, author, reason, rec.DeletedAt.UnixNano())
		return err
	})
	if err != nil {
		return nil, commitError("delete", slug, 0, err)
	}
	return rec, nil
}

// ListDeletions returns deletion records, newest first.
func (s *versionStore) ListDeletions(ctx context.Context) ([]domain.DeletionRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT slug, versions, author, reason, deleted_at
		FROM deletions ORDER BY id DESC
	`)
	if err != nil {
		return nil, domain.IOError("list deletions", "", 0, err)
	}
	defer rows.Close()

	result := []domain.DeletionRecord{}
	for rows.Next() {
		var (
			rec       domain.DeletionRecord
			deletedAt int64
		)
		if err := rows.Scan(&rec.Slug, &rec.Versions, &rec.Author, &rec.Reason, &deletedAt); err != nil {
			return nil, domain.IOError("list deletions", "", 0, err)
		}
		rec.DeletedAt = fromNanos(deletedAt)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("list deletions", "", 0, err)
	}
	return result, nil
}

// Close closes the underlying store.
func (s *versionStore) Close() error {
	return s.store.Close()
}

// inTx runs fn in a transaction, committing on success.
func (s *versionStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// commitError classifies a write failure. Domain errors pass through
// with context; lock contention becomes a version conflict; everything
// else is an I/O failure.
func commitError(op, slug string, version int, err error) error {
	var recErr *domain.RecordError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &recErr):
		return err
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCorruptRecord):
		return domain.NewRecordError(op, slug, version, err)
	case isContention(err):
		return domain.NewRecordError(op, slug, version, fmt.Errorf("%w: %v", domain.ErrVersionConflict, err))
	default:
		return domain.IOError(op, slug, version, err)
	}
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
