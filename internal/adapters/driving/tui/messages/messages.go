// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/wve/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments lists stored documents.
	ViewDocuments ViewType = iota
	// ViewHistory lists the audit entries of one document.
	ViewHistory
	// ViewVersion shows one version and the changes that produced it.
	ViewVersion
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewHistory:
		return "history"
	case ViewVersion:
		return "version"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// DocumentsLoaded carries a listing or search result.
type DocumentsLoaded struct {
	Query     string
	Documents []domain.DocumentSummary
	Err       error
}

// DocumentSelected signals a document was chosen from the list.
type DocumentSelected struct {
	Document domain.DocumentSummary
}

// HistoryLoaded carries the audit entries of a document, oldest first.
type HistoryLoaded struct {
	Slug    string
	Entries []domain.AuditEntry
	Err     error
}

// EntrySelected signals an audit entry was chosen from the history.
type EntrySelected struct {
	Entry domain.AuditEntry
}

// VersionLoaded carries a snapshot and the changes recorded for it.
type VersionLoaded struct {
	Version *domain.Version
	Changes []domain.Change
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
