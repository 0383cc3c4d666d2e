package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/wve/internal/logger"
)

// Config holds configuration for the badger store.
type Config struct {
	// Path is the directory for database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in memory. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is how often value log garbage collection runs.
	// Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum discardable fraction before a value
	// log file is rewritten.
	GCDiscardRatio float64
}

// DefaultConfig returns the production configuration for dataDir.
// If dataDir is empty, defaults to ~/.wve/data/badger.
func DefaultConfig(dataDir string) (Config, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".wve", "data")
	}
	return Config{
		Path:           filepath.Join(dataDir, "badger"),
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}, nil
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger routes badger's internal logging through the logger package.
// Badger's info output is noisy, so it is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any)   { logger.Error("badger: "+format, args...) }
func (badgerLogger) Warningf(format string, args ...any) { logger.Warn("badger: "+format, args...) }
func (badgerLogger) Infof(format string, args ...any)    { logger.Debug("badger: "+format, args...) }
func (badgerLogger) Debugf(format string, args ...any)   { logger.Debug("badger: "+format, args...) }

// open opens the database described by cfg.
func open(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}
	return db, nil
}
