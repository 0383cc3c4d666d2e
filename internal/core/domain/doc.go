// Package domain defines the core business entities for the wve knowledge store.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A versioned record of a subject's stances, keyed by theme
//   - Point: One theme's stance, confidence and supporting evidence
//   - Version: An immutable, numbered snapshot of a Document
//   - AuditEntry: An append-only record of one version transition
//   - Change: One add/remove/replace operation addressed by path
//   - MergeResult: The outcome of a three-way merge, with conflicts
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
