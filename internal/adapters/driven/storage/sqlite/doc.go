// Package sqlite provides the SQLite implementation of driven.VersionStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Snapshots, the version index (documents.head), the audit ledger and an FTS5
// index over subjects and themes live in one database file.
//
// # Data Location
//
// By default, the database is stored at ~/.wve/data/wve.db
//
// # Concurrency
//
// Every transaction is opened IMMEDIATE, so a commit holds the write lock
// from its head check to its last insert. Writers in other processes wait
// on the busy timeout; a commit whose expected head is stale fails with
// domain.ErrVersionConflict.
package sqlite
