package driven

import "time"

// Metrics records store activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// SaveCompleted records a committed save and the attempts it took.
	SaveCompleted(slug string, attempts int, elapsed time.Duration)

	// SaveFailed records a save that did not commit.
	SaveFailed(slug string, reason string)

	// VersionConflict records a lost race on the version index.
	VersionConflict(slug string)

	// MergeCompleted records a merge and how many conflicts it surfaced.
	MergeCompleted(slug string, conflicts int)

	// CorruptRecord records a read that failed integrity checks.
	CorruptRecord(slug string)
}
