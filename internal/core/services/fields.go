package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// jsonNull marks an absent value in conflicts.
var jsonNull = json.RawMessage("null")

func encode(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return data, nil
}

// fieldValue returns the JSON encoding of one point field.
func fieldValue(p domain.Point, field string) (json.RawMessage, error) {
	switch field {
	case domain.FieldStance:
		return encode(p.Stance)
	case domain.FieldConfidence:
		return encode(p.Confidence)
	case domain.FieldEvidence:
		return encode(p.Evidence)
	case domain.FieldSources:
		return encode(p.Sources)
	default:
		return nil, fmt.Errorf("%w: unknown point field %q", domain.ErrInvalidInput, field)
	}
}

// setField decodes raw into one point field.
func setField(p *domain.Point, field string, raw json.RawMessage) error {
	var err error
	switch field {
	case domain.FieldStance:
		err = json.Unmarshal(raw, &p.Stance)
	case domain.FieldConfidence:
		err = json.Unmarshal(raw, &p.Confidence)
	case domain.FieldEvidence:
		p.Evidence = nil
		err = json.Unmarshal(raw, &p.Evidence)
	case domain.FieldSources:
		p.Sources = nil
		err = json.Unmarshal(raw, &p.Sources)
	default:
		return fmt.Errorf("%w: unknown point field %q", domain.ErrInvalidInput, field)
	}
	if err != nil {
		return fmt.Errorf("%w: decoding %s: %v", domain.ErrPatchMismatch, field, err)
	}
	return nil
}

// sameJSON compares two encodings ignoring insignificant whitespace.
func sameJSON(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// unionThemes returns every theme in any of the documents, ascending.
func unionThemes(docs ...domain.Document) []string {
	seen := make(map[string]struct{})
	for _, d := range docs {
		for theme := range d.Points {
			seen[theme] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
