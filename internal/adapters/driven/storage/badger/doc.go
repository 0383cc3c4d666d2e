// Package badger provides a BadgerDB implementation of driven.VersionStore.
//
// Snapshots, audit entries and the per-document index record are JSON
// values under slug-scoped key prefixes. Commit and delete each run in a
// single optimistic transaction, so a reader never observes a version
// without its audit entry.
package badger
