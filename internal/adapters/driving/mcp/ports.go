package mcp

import (
	"net/http"

	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Document saves and reads versioned documents.
	Document driving.DocumentService

	// History reads the audit ledger and diffs versions.
	History driving.HistoryService

	// Temporal answers point-in-time queries.
	Temporal driving.TemporalService

	// Merge reconciles concurrent edits.
	Merge driving.MergeService

	// Compare compares documents with each other.
	Compare driving.CompareService

	// Metrics is served at /metrics in HTTP mode when set.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	// The remaining services are optional; their tools report errUnavailable.
	return nil
}
