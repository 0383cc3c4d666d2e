// Package storetest is a conformance suite shared by the VersionStore
// backends. Each backend's tests call Run with a constructor.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) driven.VersionStore

// Base is the timestamp of the first commit built by Commit.
var Base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Document builds a small document whose content depends on n.
func Document(slug string, n int) domain.Document {
	doc := domain.NewDocument(slug, "Subject "+slug)
	doc.Put(domain.Point{
		Theme:      "economics",
		Stance:     fmt.Sprintf("stance %d", n),
		Confidence: 0.5,
		Evidence:   []string{"ep1"},
	})
	return doc.Clone()
}

// Commit builds a well-formed commit advancing slug from head to head+1.
func Commit(t *testing.T, slug string, head int, doc domain.Document) domain.Commit {
	t.Helper()
	sum, err := doc.Checksum()
	require.NoError(t, err)

	next := head + 1
	at := Base.Add(time.Duration(next) * time.Minute)
	entry := domain.AuditEntry{
		ID:        fmt.Sprintf("%s-%d", slug, next),
		Slug:      slug,
		Timestamp: at,
		Kind:      domain.OpCreate,
		Author:    "tester",
		Reason:    fmt.Sprintf("commit %d", next),
		After:     next,
		Changes: []domain.Change{{
			Path:     domain.PathSubject,
			Op:       domain.ChangeReplace,
			OldValue: json.RawMessage(`""`),
			NewValue: json.RawMessage(`"x"`),
		}},
	}
	if head > 0 {
		before := head
		entry.Before = &before
		entry.Kind = domain.OpUpdate
	}
	return domain.Commit{
		Version: domain.Version{
			Slug:      slug,
			Number:    next,
			Document:  doc,
			CreatedAt: at,
			Author:    "tester",
			Reason:    entry.Reason,
			Checksum:  sum,
		},
		Entry:        entry,
		ExpectedHead: head,
	}
}

// Seed commits n versions of slug.
func Seed(t *testing.T, store driven.VersionStore, slug string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Commit(context.Background(), Commit(t, slug, i, Document(slug, i+1))))
	}
}

// Run exercises every VersionStore contract against stores from factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	open := func(t *testing.T) driven.VersionStore {
		t.Helper()
		store := factory(t)
		t.Cleanup(func() { assert.NoError(t, store.Close()) })
		return store
	}

	t.Run("UnknownSlug", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		_, err := store.Head(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetVersion(ctx, "ghost", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ListVersions(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ReadLedger(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.DeleteDocument(ctx, "ghost", "a", "r")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CommitAndRead", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 3)

		head, err := store.Head(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, 3, head)

		v, err := store.GetVersion(ctx, "alpha", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, v.Number)
		assert.True(t, v.Document.Equal(Document("alpha", 2)))
		assert.True(t, v.CreatedAt.Equal(Base.Add(2*time.Minute)))
		assert.NoError(t, v.Verify())

		_, err = store.GetVersion(ctx, "alpha", 4)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetVersion(ctx, "alpha", 0)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListVersionsNewestFirst", func(t *testing.T) {
		store := open(t)
		Seed(t, store, "alpha", 3)

		infos, err := store.ListVersions(context.Background(), "alpha")
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, []int{3, 2, 1}, []int{infos[0].Number, infos[1].Number, infos[2].Number})
		assert.Equal(t, "commit 3", infos[0].Reason)
	})

	t.Run("LedgerIsSealedChain", func(t *testing.T) {
		store := open(t)
		Seed(t, store, "alpha", 4)

		entries, err := store.ReadLedger(context.Background(), "alpha")
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.NoError(t, domain.VerifyLedger("alpha", entries))
		assert.Nil(t, entries[0].Before)
		assert.Equal(t, 3, entries[3].BeforeVersion())
		assert.Equal(t, entries[2].Hash, entries[3].PrevHash)
		require.Len(t, entries[0].Changes, 1)
		assert.JSONEq(t, `"x"`, string(entries[0].Changes[0].NewValue))
	})

	t.Run("StaleHeadConflicts", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 2)

		err := store.Commit(ctx, Commit(t, "alpha", 1, Document("alpha", 9)))
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		err = store.Commit(ctx, Commit(t, "alpha", 0, Document("alpha", 9)))
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		head, err := store.Head(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, 2, head)
		entries, err := store.ReadLedger(ctx, "alpha")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("FailedCommitLeavesNothing", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 2)

		// The snapshot is valid; only the audit entry collides with alpha's.
		c := Commit(t, "beta", 0, Document("beta", 1))
		c.Entry.ID = "alpha-1"
		err := store.Commit(ctx, c)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIOFailure)
		assert.NotErrorIs(t, err, domain.ErrVersionConflict)

		_, err = store.Head(ctx, "beta")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetVersion(ctx, "beta", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ListVersions(ctx, "beta")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ReadLedger(ctx, "beta")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		summaries, err := store.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "alpha", summaries[0].Slug)
		found, err := store.SearchDocuments(ctx, "beta")
		require.NoError(t, err)
		assert.Empty(t, found)

		// Same on a slug that already has history: head and ledger stay put.
		Seed(t, store, "beta", 1)
		c = Commit(t, "beta", 1, Document("beta", 2))
		c.Entry.ID = "alpha-2"
		err = store.Commit(ctx, c)
		assert.ErrorIs(t, err, domain.ErrIOFailure)

		head, err := store.Head(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, 1, head)
		_, err = store.GetVersion(ctx, "beta", 2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		entries, err := store.ReadLedger(ctx, "beta")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NoError(t, domain.VerifyLedger("beta", entries))

		entries, err = store.ReadLedger(ctx, "alpha")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.NoError(t, domain.VerifyLedger("alpha", entries))

		// Deleting a document releases its entry IDs.
		_, err = store.DeleteDocument(ctx, "alpha", "admin", "retracted")
		require.NoError(t, err)
		c = Commit(t, "beta", 1, Document("beta", 2))
		c.Entry.ID = "alpha-2"
		require.NoError(t, store.Commit(ctx, c))
	})

	t.Run("ConcurrentCommitsOneWinnerPerVersion", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 1)

		commits := make([]domain.Commit, 8)
		for i := range commits {
			commits[i] = Commit(t, "alpha", 1, Document("alpha", 100+i))
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for _, c := range commits {
			wg.Add(1)
			go func(c domain.Commit) {
				defer wg.Done()
				err := store.Commit(ctx, c)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrVersionConflict)
			}(c)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		head, err := store.Head(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, 2, head)
		entries, err := store.ReadLedger(ctx, "alpha")
		require.NoError(t, err)
		assert.NoError(t, domain.VerifyLedger("alpha", entries))
	})

	t.Run("ListAndSearch", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 1)
		Seed(t, store, "beta", 2)

		summaries, err := store.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "beta", summaries[0].Slug)
		assert.Equal(t, 2, summaries[0].Head)
		assert.Equal(t, 1, summaries[0].PointCount)
		assert.True(t, summaries[0].CreatedAt.Equal(Base.Add(time.Minute)))
		assert.True(t, summaries[0].UpdatedAt.Equal(Base.Add(2*time.Minute)))

		found, err := store.SearchDocuments(ctx, "econ")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = store.SearchDocuments(ctx, "alpha")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "alpha", found[0].Slug)

		found, err = store.SearchDocuments(ctx, "nothing-like-this")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("DeleteDocument", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		Seed(t, store, "alpha", 3)
		Seed(t, store, "beta", 1)

		rec, err := store.DeleteDocument(ctx, "alpha", "admin", "retracted")
		require.NoError(t, err)
		assert.Equal(t, "alpha", rec.Slug)
		assert.Equal(t, 3, rec.Versions)
		assert.Equal(t, "admin", rec.Author)

		_, err = store.Head(ctx, "alpha")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ReadLedger(ctx, "alpha")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		head, err := store.Head(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, 1, head)

		deletions, err := store.ListDeletions(ctx)
		require.NoError(t, err)
		require.Len(t, deletions, 1)
		assert.Equal(t, "retracted", deletions[0].Reason)

		// The slug starts over from version 1.
		require.NoError(t, store.Commit(ctx, Commit(t, "alpha", 0, Document("alpha", 1))))
		entries, err := store.ReadLedger(ctx, "alpha")
		require.NoError(t, err)
		assert.NoError(t, domain.VerifyLedger("alpha", entries))
	})
}
