package domain

const unknownDescription = "Unknown"

// Backend identifies a version store implementation.
type Backend string

// Available backends.
const (
	// BackendSQLite is the default single-file store.
	BackendSQLite Backend = "sqlite"

	// BackendBadger is an embedded key-value store.
	BackendBadger Backend = "badger"

	// BackendMemory keeps everything in process memory.
	BackendMemory Backend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b Backend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendBadger, BackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b Backend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b Backend) Description() string {
	switch b {
	case BackendSQLite:
		return "SQLite (single file, full-text search)"
	case BackendBadger:
		return "Badger (embedded key-value store)"
	case BackendMemory:
		return "Memory (not persisted)"
	default:
		return unknownDescription
	}
}

// StoreSettings configures the knowledge store.
type StoreSettings struct {
	// Backend selects the version store.
	Backend Backend

	// DataDir is where persistent backends keep their files.
	// Empty means ~/.wve/data.
	DataDir string
}

// MergeSettings configures the merge engine.
type MergeSettings struct {
	// Resolution is applied to conflicted fields in the merged document.
	Resolution Resolution
}

// SaveSettings configures the save path.
type SaveSettings struct {
	// MaxAttempts bounds retries after a lost version race.
	MaxAttempts int

	// RetryPerSecond paces retries.
	RetryPerSecond float64
}

// AppSettings aggregates all user-configurable settings.
type AppSettings struct {
	Store StoreSettings
	Merge MergeSettings
	Save  SaveSettings
}

// DefaultAppSettings returns the default settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Store: StoreSettings{Backend: BackendSQLite},
		Merge: MergeSettings{Resolution: ResolveYours},
		Save:  SaveSettings{MaxAttempts: 5, RetryPerSecond: 20},
	}
}
