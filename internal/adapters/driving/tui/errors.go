package tui

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("tui: document service is required")

// ErrMissingHistoryService is returned when the history service is not provided.
var ErrMissingHistoryService = errors.New("tui: history service is required")
