package services

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// Differ computes and applies patches between document snapshots.
//
// Output order is fixed: the subject change first, then point changes by
// theme ascending, and within a theme the fields in domain.PointFields
// order. Applying Diff(a, b) to a reproduces b exactly.
type Differ struct{}

// NewDiffer creates a differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// Diff returns the ordered change list transforming from into to.
func (d *Differ) Diff(from, to domain.Document) ([]domain.Change, error) {
	from, to = from.Clone(), to.Clone()
	changes := make([]domain.Change, 0)

	if from.Subject != to.Subject {
		oldVal, err := encode(from.Subject)
		if err != nil {
			return nil, err
		}
		newVal, err := encode(to.Subject)
		if err != nil {
			return nil, err
		}
		changes = append(changes, domain.Change{
			Path:     domain.PathSubject,
			Op:       domain.ChangeReplace,
			OldValue: oldVal,
			NewValue: newVal,
		})
	}

	for _, theme := range unionThemes(from, to) {
		oldPoint, inOld := from.Points[theme]
		newPoint, inNew := to.Points[theme]

		switch {
		case inOld && !inNew:
			val, err := encode(oldPoint)
			if err != nil {
				return nil, err
			}
			changes = append(changes, domain.Change{
				Path:     domain.PointPath(theme),
				Op:       domain.ChangeRemove,
				OldValue: val,
			})
		case !inOld && inNew:
			val, err := encode(newPoint)
			if err != nil {
				return nil, err
			}
			changes = append(changes, domain.Change{
				Path:     domain.PointPath(theme),
				Op:       domain.ChangeAdd,
				NewValue: val,
			})
		case !oldPoint.Equal(newPoint):
			fieldChanges, err := diffPoint(theme, oldPoint, newPoint)
			if err != nil {
				return nil, err
			}
			changes = append(changes, fieldChanges...)
		}
	}

	return changes, nil
}

func diffPoint(theme string, from, to domain.Point) ([]domain.Change, error) {
	var changes []domain.Change
	for _, field := range domain.PointFields {
		oldVal, err := fieldValue(from, field)
		if err != nil {
			return nil, err
		}
		newVal, err := fieldValue(to, field)
		if err != nil {
			return nil, err
		}
		if sameJSON(oldVal, newVal) {
			continue
		}
		changes = append(changes, domain.Change{
			Path:     domain.FieldPath(theme, field),
			Op:       domain.ChangeReplace,
			OldValue: oldVal,
			NewValue: newVal,
		})
	}
	return changes, nil
}

// Apply applies changes to doc in order and returns the result; doc is
// not modified. Every change's precondition is checked: the old value must
// match for remove and replace, and an add target must not exist.
func (d *Differ) Apply(doc domain.Document, changes []domain.Change) (domain.Document, error) {
	out := doc.Clone()
	for i, c := range changes {
		if err := applyChange(&out, c); err != nil {
			return domain.Document{}, fmt.Errorf("change %d at %s: %w", i, c.Path, err)
		}
	}
	return out, nil
}

func applyChange(doc *domain.Document, c domain.Change) error {
	theme, field, err := domain.ParsePath(c.Path)
	if err != nil {
		return err
	}

	if c.Path == domain.PathSubject {
		return applySubject(doc, c)
	}

	current, exists := doc.Points[theme]

	if field != "" {
		if c.Op != domain.ChangeReplace {
			return fmt.Errorf("%w: field paths only support replace, got %s", domain.ErrPatchMismatch, c.Op)
		}
		if !exists {
			return fmt.Errorf("%w: no point for theme %q", domain.ErrPatchMismatch, theme)
		}
		oldVal, err := fieldValue(current, field)
		if err != nil {
			return err
		}
		if err := checkOld(c, oldVal); err != nil {
			return err
		}
		if err := setField(&current, field, c.NewValue); err != nil {
			return err
		}
		doc.Points[theme] = current.Clone()
		return nil
	}

	switch c.Op {
	case domain.ChangeAdd:
		if exists {
			return fmt.Errorf("%w: theme %q already present", domain.ErrPatchMismatch, theme)
		}
	case domain.ChangeRemove, domain.ChangeReplace:
		if !exists {
			return fmt.Errorf("%w: no point for theme %q", domain.ErrPatchMismatch, theme)
		}
		oldVal, err := encode(current)
		if err != nil {
			return err
		}
		if err := checkOld(c, oldVal); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown op %q", domain.ErrPatchMismatch, c.Op)
	}

	if c.Op == domain.ChangeRemove {
		delete(doc.Points, theme)
		return nil
	}

	p, err := decodePoint(c.NewValue)
	if err != nil {
		return err
	}
	if p.Theme != theme {
		return fmt.Errorf("%w: point theme %q stored at %q", domain.ErrPatchMismatch, p.Theme, theme)
	}
	doc.Points[theme] = p.Clone()
	return nil
}

func applySubject(doc *domain.Document, c domain.Change) error {
	if c.Op != domain.ChangeReplace {
		return fmt.Errorf("%w: subject only supports replace, got %s", domain.ErrPatchMismatch, c.Op)
	}
	oldVal, err := encode(doc.Subject)
	if err != nil {
		return err
	}
	if err := checkOld(c, oldVal); err != nil {
		return err
	}
	if err := json.Unmarshal(c.NewValue, &doc.Subject); err != nil {
		return fmt.Errorf("%w: decoding subject: %v", domain.ErrPatchMismatch, err)
	}
	return nil
}

// checkOld verifies the change's old value against the current one.
func checkOld(c domain.Change, current json.RawMessage) error {
	if !sameJSON(current, c.OldValue) {
		return fmt.Errorf("%w: expected %s, found %s", domain.ErrPatchMismatch, c.OldValue, current)
	}
	return nil
}

func decodePoint(raw []byte) (domain.Point, error) {
	var p domain.Point
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Point{}, fmt.Errorf("%w: decoding point: %v", domain.ErrPatchMismatch, err)
	}
	return p, nil
}
