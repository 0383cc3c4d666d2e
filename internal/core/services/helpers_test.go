package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// recordingMetrics counts driven.Metrics calls.
type recordingMetrics struct {
	mu         sync.Mutex
	saves      int
	attempts   []int
	failures   map[string]int
	conflicts  int
	merges     []int
	corruption int
}

var _ driven.Metrics = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{failures: make(map[string]int)}
}

func (m *recordingMetrics) SaveCompleted(_ string, attempts int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.attempts = append(m.attempts, attempts)
}

func (m *recordingMetrics) SaveFailed(_ string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *recordingMetrics) VersionConflict(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *recordingMetrics) MergeCompleted(_ string, conflicts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merges = append(m.merges, conflicts)
}

func (m *recordingMetrics) CorruptRecord(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruption++
}

// racingStore simulates a writer in another process: before each of the
// first n commits it slips in a commit of its own, so the caller's
// expected head is stale.
type racingStore struct {
	driven.VersionStore
	t     *testing.T
	mu    sync.Mutex
	races int
}

func (s *racingStore) Commit(ctx context.Context, c domain.Commit) error {
	s.mu.Lock()
	race := s.races > 0
	if race {
		s.races--
	}
	s.mu.Unlock()

	if race {
		rival := c
		rival.Version.Document = c.Version.Document.Clone()
		rival.Version.Document.Subject = "rival"
		sum, err := rival.Version.Document.Checksum()
		require.NoError(s.t, err)
		rival.Version.Checksum = sum
		rival.Version.Reason = "rival write"
		rival.Entry.ID = c.Entry.ID + "-rival"
		require.NoError(s.t, s.VersionStore.Commit(ctx, rival))
	}
	return s.VersionStore.Commit(ctx, c)
}

// fixedClock returns successive times one minute apart from start.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

var clockStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestDocumentService(t *testing.T) (*DocumentService, *memory.VersionStore, *recordingMetrics) {
	t.Helper()
	store := memory.NewVersionStore()
	metrics := newRecordingMetrics()
	svc := NewDocumentService(store, metrics, domain.SaveSettings{MaxAttempts: 5, RetryPerSecond: 1000})
	svc.now = fixedClock(clockStart)
	return svc, store, metrics
}

func save(t *testing.T, svc *DocumentService, d domain.Document, reason string) *driving.SaveResult {
	t.Helper()
	result, err := svc.Save(context.Background(), driving.SaveRequest{
		Document: d,
		Author:   "tester",
		Reason:   reason,
	})
	require.NoError(t, err)
	return result
}

// alphaHistory saves three versions of "alpha":
// v1 economics 0.6, v2 economics 0.8, v3 adds climate.
func alphaHistory(t *testing.T, svc *DocumentService) {
	t.Helper()
	save(t, svc, doc("alpha", "Alpha", point("economics", "skeptical", 0.6, "ep1")), "initial")
	save(t, svc, doc("alpha", "Alpha", point("economics", "skeptical", 0.8, "ep1")), "more evidence")
	save(t, svc, doc("alpha", "Alpha",
		point("economics", "skeptical", 0.8, "ep1"),
		point("climate", "concerned", 0.9, "ep2"),
	), "new theme")
}
