// Package prometheus implements driven.Metrics with Prometheus collectors.
//
// Collectors are registered on a private registry so that several stores
// can coexist in one process (and in tests). Handler exposes them for
// scraping.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/wve/internal/core/ports/driven"
)

const namespace = "wve"

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

// Metrics records save, conflict, merge and corruption events.
// Slugs are deliberately not used as labels to keep cardinality bounded.
type Metrics struct {
	registry *prometheus.Registry

	savesTotal      prometheus.Counter
	saveAttempts    prometheus.Histogram
	saveDuration    prometheus.Histogram
	saveFailures    *prometheus.CounterVec
	conflictsTotal  prometheus.Counter
	mergesTotal     *prometheus.CounterVec
	mergeConflicts  prometheus.Histogram
	corruptionTotal prometheus.Counter
}

// New creates the collectors on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		savesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Versions committed.",
		}),
		saveAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_attempts",
			Help:      "Attempts needed per successful save.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time from first attempt to commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		saveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Saves that returned an error, by reason.",
		}, []string{"reason"}),
		conflictsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Commits rejected because the head moved.",
		}),
		mergesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Merges computed, by outcome.",
		}, []string{"outcome"}),
		mergeConflicts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_conflicts",
			Help:      "Conflicts reported per merge.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25},
		}),
		corruptionTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_records_total",
			Help:      "Records that failed checksum or decode.",
		}),
	}
}

// SaveCompleted records a committed version.
func (m *Metrics) SaveCompleted(_ string, attempts int, elapsed time.Duration) {
	m.savesTotal.Inc()
	m.saveAttempts.Observe(float64(attempts))
	m.saveDuration.Observe(elapsed.Seconds())
}

// SaveFailed records a save that returned an error.
func (m *Metrics) SaveFailed(_ string, reason string) {
	m.saveFailures.WithLabelValues(reason).Inc()
}

// VersionConflict records a lost compare-and-swap on the head.
func (m *Metrics) VersionConflict(_ string) {
	m.conflictsTotal.Inc()
}

// MergeCompleted records a merge and how many conflicts it reported.
func (m *Metrics) MergeCompleted(_ string, conflicts int) {
	outcome := "clean"
	if conflicts > 0 {
		outcome = "conflicted"
	}
	m.mergesTotal.WithLabelValues(outcome).Inc()
	m.mergeConflicts.Observe(float64(conflicts))
}

// CorruptRecord records a record that failed verification.
func (m *Metrics) CorruptRecord(_ string) {
	m.corruptionTotal.Inc()
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
