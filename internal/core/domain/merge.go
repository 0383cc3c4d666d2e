package domain

import (
	"encoding/json"
	"fmt"
)

// Resolution selects which side a conflicted field takes in the
// best-effort merged document. The conflict is reported regardless.
type Resolution string

// Resolution strategies.
const (
	ResolveYours  Resolution = "yours"
	ResolveTheirs Resolution = "theirs"
	ResolveBase   Resolution = "base"
)

// IsValid returns true if the resolution is recognised.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolveYours, ResolveTheirs, ResolveBase:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Resolution) String() string {
	return string(r)
}

// ParseResolution parses a resolution name.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown merge resolution %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Conflict is a location both sides changed differently relative to base.
// Values are JSON; "null" means the side has no value there.
type Conflict struct {
	Path       string          `json:"path"`
	Theme      string          `json:"theme,omitempty"`
	Field      string          `json:"field,omitempty"`
	Base       json.RawMessage `json:"base"`
	Yours      json.RawMessage `json:"yours"`
	Theirs     json.RawMessage `json:"theirs"`
	Resolution Resolution      `json:"resolution"`
}

// MergeResult is a best-effort merged document plus every conflict found.
// A non-empty Conflicts list requires review; Merged is not authoritative
// for the conflicted paths.
type MergeResult struct {
	Merged      Document   `json:"merged"`
	Conflicts   []Conflict `json:"conflicts"`
	BaseVersion int        `json:"base_version,omitempty"`
}

// HasConflicts reports whether review is required.
func (m MergeResult) HasConflicts() bool {
	return len(m.Conflicts) > 0
}
