// Package mcp provides an MCP (Model Context Protocol) server adapter for wve.
// It lets AI assistants save, read and reconcile versioned knowledge documents.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")

// errUnavailable is returned by tools whose backing service is not configured.
var errUnavailable = errors.New("mcp: service not configured")
