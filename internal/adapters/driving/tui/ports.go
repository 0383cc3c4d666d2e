// Package tui provides an interactive terminal browser for stored
// documents and their version history.
package tui

import (
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// Ports aggregates the driving ports the browser reads from.
type Ports struct {
	// Document lists, searches and loads document versions.
	Document driving.DocumentService

	// History provides audit entries and version diffs.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	if p.History == nil {
		return ErrMissingHistoryService
	}
	return nil
}
