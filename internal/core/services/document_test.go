package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

func TestDocumentService_NilStore(t *testing.T) {
	svc := NewDocumentService(nil, nil, domain.SaveSettings{})
	ctx := context.Background()

	_, err := svc.Save(ctx, driving.SaveRequest{Document: doc("alpha", "A"), Author: "a", Reason: "r"})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Get(ctx, "alpha", 0)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Deletions(ctx)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestNewDocumentService_DefaultsSettings(t *testing.T) {
	svc := NewDocumentService(memory.NewVersionStore(), nil, domain.SaveSettings{})
	assert.Equal(t, domain.DefaultAppSettings().Save.MaxAttempts, svc.maxAttempts)
}

func TestDocumentService_Save_FirstVersion(t *testing.T) {
	svc, store, metrics := newTestDocumentService(t)
	ctx := context.Background()

	result := save(t, svc, doc("alpha", "Alpha", point("economics", "skeptical", 0.6, "ep1")), "initial")

	assert.Equal(t, 1, result.Version)
	assert.Equal(t, []string{"subject", "points/economics"}, paths(result.Changes))
	assert.Equal(t, domain.ChangeSummary{Added: 1, Replaced: 1}, result.Summary)

	entries, err := store.ReadLedger(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, domain.OpCreate, e.Kind)
	assert.Nil(t, e.Before)
	assert.Equal(t, 1, e.After)
	assert.Equal(t, "tester", e.Author)
	assert.Equal(t, "initial", e.Reason)
	assert.True(t, e.Timestamp.Equal(clockStart))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, metrics.saves)
}

func TestDocumentService_Save_RecordsFieldChange(t *testing.T) {
	svc, store, _ := newTestDocumentService(t)
	ctx := context.Background()

	save(t, svc, doc("alpha", "Alpha", point("economics", "skeptical", 0.6, "ep1")), "initial")
	result := save(t, svc, doc("alpha", "Alpha", point("economics", "skeptical", 0.8, "ep1")), "more evidence")

	assert.Equal(t, 2, result.Version)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "points/economics/confidence", result.Changes[0].Path)
	assert.JSONEq(t, "0.6", string(result.Changes[0].OldValue))
	assert.JSONEq(t, "0.8", string(result.Changes[0].NewValue))

	entries, err := store.ReadLedger(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OpUpdate, entries[1].Kind)
	assert.Equal(t, 1, entries[1].BeforeVersion())
	assert.Equal(t, result.Changes, entries[1].Changes)
	assert.NoError(t, domain.VerifyLedger("alpha", entries))
}

func TestDocumentService_Save_IdenticalContentStillVersions(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	d := doc("alpha", "Alpha", point("economics", "skeptical", 0.6))

	save(t, svc, d, "initial")
	result := save(t, svc, d, "re-affirmed")

	assert.Equal(t, 2, result.Version)
	assert.Empty(t, result.Changes)
	assert.Equal(t, "no changes", result.Summary.String())
}

func TestDocumentService_Save_Metadata(t *testing.T) {
	svc, store, _ := newTestDocumentService(t)
	meta := map[string]string{"episode": "12"}

	_, err := svc.Save(context.Background(), driving.SaveRequest{
		Document: doc("alpha", "Alpha"),
		Author:   "tester",
		Reason:   "import",
		Metadata: meta,
	})
	require.NoError(t, err)
	meta["episode"] = "changed"

	entries, err := store.ReadLedger(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "12", entries[0].Metadata["episode"])
}

func TestDocumentService_Save_Rejects(t *testing.T) {
	svc, store, metrics := newTestDocumentService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  driving.SaveRequest
	}{
		{"bad slug", driving.SaveRequest{Document: doc("Bad Slug", "x"), Author: "a", Reason: "r"}},
		{"bad confidence", driving.SaveRequest{Document: doc("alpha", "x", point("t", "s", 2)), Author: "a", Reason: "r"}},
		{"no author", driving.SaveRequest{Document: doc("alpha", "x"), Reason: "r"}},
		{"no reason", driving.SaveRequest{Document: doc("alpha", "x"), Author: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := store.Head(ctx, "alpha")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, metrics.saves)
}

func TestDocumentService_Save_TimestampsNeverRunBackwards(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()

	save(t, svc, doc("alpha", "v1"), "one")
	svc.now = func() time.Time { return clockStart.Add(-time.Hour) }
	save(t, svc, doc("alpha", "v2"), "two")

	v1, err := svc.Get(ctx, "alpha", 1)
	require.NoError(t, err)
	v2, err := svc.Get(ctx, "alpha", 2)
	require.NoError(t, err)
	assert.False(t, v2.CreatedAt.Before(v1.CreatedAt))
}

func TestDocumentService_Save_ConcurrentSavesGetContiguousVersions(t *testing.T) {
	svc, store, _ := newTestDocumentService(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	versions := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := svc.Save(ctx, driving.SaveRequest{
				Document: doc("alpha", fmt.Sprintf("subject %d", n)),
				Author:   "writer",
				Reason:   fmt.Sprintf("write %d", n),
			})
			if assert.NoError(t, err) {
				versions <- result.Version
			}
		}(i)
	}
	wg.Wait()
	close(versions)

	seen := make(map[int]bool)
	for v := range versions {
		assert.False(t, seen[v], "version %d assigned twice", v)
		seen[v] = true
	}
	for v := 1; v <= writers; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}

	entries, err := store.ReadLedger(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, entries, writers)
	assert.NoError(t, domain.VerifyLedger("alpha", entries))
}

func TestDocumentService_Save_RetriesLostRace(t *testing.T) {
	inner := memory.NewVersionStore()
	store := &racingStore{VersionStore: inner, t: t, races: 2}
	metrics := newRecordingMetrics()
	svc := NewDocumentService(store, metrics, domain.SaveSettings{MaxAttempts: 5, RetryPerSecond: 1000})
	ctx := context.Background()

	result, err := svc.Save(ctx, driving.SaveRequest{Document: doc("alpha", "mine"), Author: "a", Reason: "r"})
	require.NoError(t, err)

	// Two rival versions landed first.
	assert.Equal(t, 3, result.Version)
	assert.Equal(t, 2, metrics.conflicts)
	assert.Equal(t, []int{3}, metrics.attempts)

	// The diff is against the rival's version, not the one first read.
	require.Len(t, result.Changes, 1)
	assert.JSONEq(t, `"rival"`, string(result.Changes[0].OldValue))

	entries, err := inner.ReadLedger(ctx, "alpha")
	require.NoError(t, err)
	assert.NoError(t, domain.VerifyLedger("alpha", entries))
}

func TestDocumentService_Save_GivesUp(t *testing.T) {
	store := &racingStore{VersionStore: memory.NewVersionStore(), t: t, races: 10}
	metrics := newRecordingMetrics()
	svc := NewDocumentService(store, metrics, domain.SaveSettings{MaxAttempts: 3, RetryPerSecond: 1000})

	_, err := svc.Save(context.Background(), driving.SaveRequest{Document: doc("alpha", "mine"), Author: "a", Reason: "r"})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	var recErr *domain.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "alpha", recErr.Slug)
	assert.Equal(t, 3, metrics.conflicts)
	assert.Equal(t, 1, metrics.failures["version_conflict"])
}

func TestDocumentService_Save_CancelledWhileRetrying(t *testing.T) {
	store := &racingStore{VersionStore: memory.NewVersionStore(), t: t, races: 10}
	svc := NewDocumentService(store, nil, domain.SaveSettings{MaxAttempts: 5, RetryPerSecond: 0.001})
	ctx, cancel := context.WithCancel(context.Background())

	// The limiter's single burst token is used by the first retry wait.
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := svc.Save(ctx, driving.SaveRequest{Document: doc("alpha", "mine"), Author: "a", Reason: "r"})
	assert.Error(t, err)
}

func TestDocumentService_Get(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()
	alphaHistory(t, svc)

	latest, err := svc.Get(ctx, "alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Number)
	assert.Len(t, latest.Document.Points, 2)

	v1, err := svc.Get(ctx, "alpha", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.6, v1.Document.Points["economics"].Confidence)
	assert.Equal(t, "initial", v1.Reason)

	_, err = svc.Get(ctx, "alpha", 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "alpha", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Get(ctx, "ghost", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_ListVersions(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	alphaHistory(t, svc)

	infos, err := svc.ListVersions(context.Background(), "alpha")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, 3, infos[0].Number)
	assert.Equal(t, "new theme", infos[0].Reason)
	assert.Equal(t, 1, infos[2].Number)
}

func TestDocumentService_ListAndSearch(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()
	alphaHistory(t, svc)
	save(t, svc, doc("beta", "Beta Group", point("housing", "supportive", 0.4)), "initial")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "beta", all[0].Slug)

	found, err := svc.Search(ctx, "climate")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alpha", found[0].Slug)

	_, err = svc.Search(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_Delete(t *testing.T) {
	svc, store, _ := newTestDocumentService(t)
	ctx := context.Background()
	alphaHistory(t, svc)

	_, err := svc.Delete(ctx, "alpha", "", "cleanup")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rec, err := svc.Delete(ctx, "alpha", "admin", "cleanup")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Versions)

	_, err = svc.Get(ctx, "alpha", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deletions, err := store.ListDeletions(ctx)
	require.NoError(t, err)
	assert.Len(t, deletions, 1)

	_, err = svc.Delete(ctx, "alpha", "admin", "again")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_RejectsInvalidSlug(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()
	alphaHistory(t, svc)

	for _, slug := range []string{"", "Alpha", "../alpha", "alpha/1"} {
		_, err := svc.Get(ctx, slug, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, slug)
		_, err = svc.ListVersions(ctx, slug)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, slug)
		_, err = svc.Delete(ctx, slug, "admin", "cleanup")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, slug)
	}

	head, err := svc.Get(ctx, "alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, head.Number)
}

func TestDocumentService_Deletions(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()

	deletions, err := svc.Deletions(ctx)
	require.NoError(t, err)
	assert.Empty(t, deletions)

	alphaHistory(t, svc)
	save(t, svc, doc("beta", "Beta", point("climate", "concerned", 0.7, "ep3")), "initial")

	_, err = svc.Delete(ctx, "alpha", "admin", "retracted")
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "beta", "editor", "duplicate")
	require.NoError(t, err)

	deletions, err = svc.Deletions(ctx)
	require.NoError(t, err)
	require.Len(t, deletions, 2)
	assert.Equal(t, "beta", deletions[0].Slug)
	assert.Equal(t, 1, deletions[0].Versions)
	assert.Equal(t, "editor", deletions[0].Author)
	assert.Equal(t, "alpha", deletions[1].Slug)
	assert.Equal(t, 3, deletions[1].Versions)
	assert.Equal(t, "retracted", deletions[1].Reason)
}

func TestFailureReason(t *testing.T) {
	tests := map[string]error{
		"version_conflict": domain.ErrVersionConflict,
		"corrupt_record":   domain.CorruptError("get", "a", 1, "x"),
		"invalid_input":    fmt.Errorf("wrap: %w", domain.ErrInvalidInput),
		"io_failure":       domain.IOError("get", "a", 1, fmt.Errorf("disk")),
		"cancelled":        context.Canceled,
		"other":            fmt.Errorf("boom"),
	}
	for want, err := range tests {
		assert.Equal(t, want, failureReason(err))
	}
}
