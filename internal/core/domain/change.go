package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChangeOp is the kind of a single patch operation.
type ChangeOp string

// Patch operations.
const (
	ChangeAdd     ChangeOp = "add"
	ChangeRemove  ChangeOp = "remove"
	ChangeReplace ChangeOp = "replace"
)

// Point field names as they appear in change paths, in emission order.
const (
	FieldStance     = "stance"
	FieldConfidence = "confidence"
	FieldEvidence   = "evidence"
	FieldSources    = "sources"
)

// PointFields lists the addressable point fields in emission order.
var PointFields = []string{FieldStance, FieldConfidence, FieldEvidence, FieldSources}

// PathSubject addresses the document subject.
const PathSubject = "subject"

const pointsPrefix = "points/"

// Change is one operation of a patch. Values are JSON encoded; OldValue
// is empty for an add and NewValue is empty for a remove.
type Change struct {
	Path     string          `json:"path"`
	Op       ChangeOp        `json:"op"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
	NewValue json.RawMessage `json:"new_value,omitempty"`
}

// String renders the change on one line.
func (c Change) String() string {
	switch c.Op {
	case ChangeAdd:
		return fmt.Sprintf("+ %s = %s", c.Path, c.NewValue)
	case ChangeRemove:
		return fmt.Sprintf("- %s (was %s)", c.Path, c.OldValue)
	default:
		return fmt.Sprintf("~ %s: %s -> %s", c.Path, c.OldValue, c.NewValue)
	}
}

// PointPath addresses a whole point.
func PointPath(theme string) string {
	return pointsPrefix + escapeTheme(theme)
}

// FieldPath addresses one field of a point.
func FieldPath(theme, field string) string {
	return PointPath(theme) + "/" + field
}

// ParsePath splits a change path. For the subject path theme and field are
// empty; for a whole-point path field is empty.
func ParsePath(path string) (theme, field string, err error) {
	if path == PathSubject {
		return "", "", nil
	}
	rest, ok := strings.CutPrefix(path, pointsPrefix)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: bad change path %q", ErrInvalidInput, path)
	}
	escaped, field, _ := strings.Cut(rest, "/")
	if field != "" && !isPointField(field) {
		return "", "", fmt.Errorf("%w: unknown field in path %q", ErrInvalidInput, path)
	}
	return unescapeTheme(escaped), field, nil
}

func isPointField(field string) bool {
	for _, f := range PointFields {
		if f == field {
			return true
		}
	}
	return false
}

// Themes are escaped JSON-pointer style so they can carry '/'.
func escapeTheme(theme string) string {
	return strings.ReplaceAll(strings.ReplaceAll(theme, "~", "~0"), "/", "~1")
}

func unescapeTheme(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

// ChangeSummary counts changes by operation.
type ChangeSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Replaced int `json:"replaced"`
}

// Summarize counts a change list.
func Summarize(changes []Change) ChangeSummary {
	var s ChangeSummary
	for _, c := range changes {
		switch c.Op {
		case ChangeAdd:
			s.Added++
		case ChangeRemove:
			s.Removed++
		case ChangeReplace:
			s.Replaced++
		}
	}
	return s
}

// Total returns the number of changes counted.
func (s ChangeSummary) Total() int {
	return s.Added + s.Removed + s.Replaced
}

func (s ChangeSummary) String() string {
	if s.Total() == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d replaced", s.Added, s.Removed, s.Replaced)
}
