package services

import (
	"encoding/json"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// MergeEngine performs three-way merges of documents.
//
// A location changed by only one side takes that side's value. A location
// both sides changed to different values is a conflict: it is reported and
// the merged document takes the value chosen by the configured Resolution.
// Themes removed by both sides are dropped; a theme removed by one side and
// modified by the other is a whole-point conflict.
type MergeEngine struct {
	resolution domain.Resolution
}

// NewMergeEngine creates a merge engine. An invalid resolution falls back
// to domain.ResolveYours.
func NewMergeEngine(resolution domain.Resolution) *MergeEngine {
	if !resolution.IsValid() {
		resolution = domain.ResolveYours
	}
	return &MergeEngine{resolution: resolution}
}

// Resolution returns the configured conflict resolution.
func (m *MergeEngine) Resolution() domain.Resolution {
	return m.resolution
}

// Merge reconciles yours and theirs against base. The merged document
// keeps base's slug.
func (m *MergeEngine) Merge(base, yours, theirs domain.Document) (domain.MergeResult, error) {
	base, yours, theirs = base.Clone(), yours.Clone(), theirs.Clone()
	merged := domain.NewDocument(base.Slug, base.Subject)
	conflicts := make([]domain.Conflict, 0)

	subject, conflict, err := m.mergeValue(domain.PathSubject, "", "", base.Subject, yours.Subject, theirs.Subject)
	if err != nil {
		return domain.MergeResult{}, err
	}
	merged.Subject = subject
	if conflict != nil {
		conflicts = append(conflicts, *conflict)
	}

	for _, theme := range unionThemes(base, yours, theirs) {
		b, inBase := base.Points[theme]
		y, inYours := yours.Points[theme]
		t, inTheirs := theirs.Points[theme]

		var (
			point *domain.Point
			found []domain.Conflict
		)
		switch {
		case !inBase:
			point, found, err = m.mergeAdded(theme, y, inYours, t, inTheirs)
		case !inYours || !inTheirs:
			point, found, err = m.mergeRemoved(theme, b, y, inYours, t, inTheirs)
		default:
			point, found, err = m.mergeFields(theme, b, y, t)
		}
		if err != nil {
			return domain.MergeResult{}, err
		}
		if point != nil {
			merged.Put(*point)
		}
		conflicts = append(conflicts, found...)
	}

	return domain.MergeResult{Merged: merged, Conflicts: conflicts}, nil
}

// mergeValue merges one string-valued location.
func (m *MergeEngine) mergeValue(path, theme, field, base, yours, theirs string) (string, *domain.Conflict, error) {
	switch {
	case yours == theirs:
		return yours, nil, nil
	case yours == base:
		return theirs, nil, nil
	case theirs == base:
		return yours, nil, nil
	}
	c, err := m.conflict(path, theme, field, base, yours, theirs)
	if err != nil {
		return "", nil, err
	}
	return pick(m.resolution, base, yours, theirs), c, nil
}

// mergeAdded handles a theme the base does not have.
func (m *MergeEngine) mergeAdded(theme string, y domain.Point, inYours bool, t domain.Point, inTheirs bool) (*domain.Point, []domain.Conflict, error) {
	switch {
	case inYours && !inTheirs:
		return &y, nil, nil
	case inTheirs && !inYours:
		return &t, nil, nil
	case y.Equal(t):
		return &y, nil, nil
	}

	var conflicts []domain.Conflict
	for _, field := range domain.PointFields {
		yv, err := fieldValue(y, field)
		if err != nil {
			return nil, nil, err
		}
		tv, err := fieldValue(t, field)
		if err != nil {
			return nil, nil, err
		}
		if sameJSON(yv, tv) {
			continue
		}
		conflicts = append(conflicts, domain.Conflict{
			Path:       domain.FieldPath(theme, field),
			Theme:      theme,
			Field:      field,
			Base:       jsonNull,
			Yours:      yv,
			Theirs:     tv,
			Resolution: m.resolution,
		})
	}

	chosen := pick[*domain.Point](m.resolution, nil, &y, &t)
	return chosen, conflicts, nil
}

// mergeRemoved handles a base theme that at least one side removed.
func (m *MergeEngine) mergeRemoved(theme string, b, y domain.Point, inYours bool, t domain.Point, inTheirs bool) (*domain.Point, []domain.Conflict, error) {
	switch {
	case !inYours && !inTheirs:
		return nil, nil, nil
	case !inYours && t.Equal(b):
		return nil, nil, nil
	case !inTheirs && y.Equal(b):
		return nil, nil, nil
	}

	var yours, theirs *domain.Point
	if inYours {
		yours = &y
	}
	if inTheirs {
		theirs = &t
	}

	c, err := m.conflict(domain.PointPath(theme), theme, "", &b, yours, theirs)
	if err != nil {
		return nil, nil, err
	}
	return pick(m.resolution, &b, yours, theirs), []domain.Conflict{*c}, nil
}

// mergeFields merges a theme all three documents hold, field by field.
func (m *MergeEngine) mergeFields(theme string, b, y, t domain.Point) (*domain.Point, []domain.Conflict, error) {
	out := b.Clone()
	var conflicts []domain.Conflict

	for _, field := range domain.PointFields {
		bv, err := fieldValue(b, field)
		if err != nil {
			return nil, nil, err
		}
		yv, err := fieldValue(y, field)
		if err != nil {
			return nil, nil, err
		}
		tv, err := fieldValue(t, field)
		if err != nil {
			return nil, nil, err
		}

		var chosen json.RawMessage
		switch {
		case sameJSON(yv, tv):
			chosen = yv
		case sameJSON(yv, bv):
			chosen = tv
		case sameJSON(tv, bv):
			chosen = yv
		default:
			conflicts = append(conflicts, domain.Conflict{
				Path:       domain.FieldPath(theme, field),
				Theme:      theme,
				Field:      field,
				Base:       bv,
				Yours:      yv,
				Theirs:     tv,
				Resolution: m.resolution,
			})
			chosen = pick(m.resolution, bv, yv, tv)
		}

		if err := setField(&out, field, chosen); err != nil {
			return nil, nil, err
		}
	}

	return &out, conflicts, nil
}

func (m *MergeEngine) conflict(path, theme, field string, base, yours, theirs any) (*domain.Conflict, error) {
	bv, err := encodeOptional(base)
	if err != nil {
		return nil, err
	}
	yv, err := encodeOptional(yours)
	if err != nil {
		return nil, err
	}
	tv, err := encodeOptional(theirs)
	if err != nil {
		return nil, err
	}
	return &domain.Conflict{
		Path:       path,
		Theme:      theme,
		Field:      field,
		Base:       bv,
		Yours:      yv,
		Theirs:     tv,
		Resolution: m.resolution,
	}, nil
}

// encodeOptional encodes v, mapping a nil point to JSON null.
func encodeOptional(v any) (json.RawMessage, error) {
	if p, ok := v.(*domain.Point); ok && p == nil {
		return jsonNull, nil
	}
	return encode(v)
}

func pick[T any](r domain.Resolution, base, yours, theirs T) T {
	switch r {
	case domain.ResolveTheirs:
		return theirs
	case domain.ResolveBase:
		return base
	default:
		return yours
	}
}
