package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"
)

// Document is a versioned structured record describing one subject.
// Points are held as a flat collection keyed by theme so that diff and
// merge can address fields by (theme, field) alone.
type Document struct {
	// Slug is the stable, unique, immutable identifier.
	Slug string `json:"slug" validate:"required,slug"`

	// Subject is the human-readable label.
	Subject string `json:"subject"`

	// Points maps theme to point. Each key equals its Point.Theme.
	Points map[string]Point `json:"points" validate:"dive"`
}

// Point is one theme's stance within a document.
type Point struct {
	// Theme is the key of the point within its document.
	Theme string `json:"theme" validate:"required"`

	// Stance is the position taken on the theme.
	Stance string `json:"stance"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`

	// Evidence is an ordered sequence of citations.
	Evidence []string `json:"evidence"`

	// Sources lists the source identifiers the point was drawn from.
	Sources []string `json:"sources"`
}

// NewDocument creates an empty document.
func NewDocument(slug, subject string) Document {
	return Document{Slug: slug, Subject: subject, Points: make(map[string]Point)}
}

// Put inserts or replaces a point under its theme.
func (d *Document) Put(p Point) {
	if d.Points == nil {
		d.Points = make(map[string]Point)
	}
	d.Points[p.Theme] = p.Clone()
}

// Themes returns the document's themes in ascending order.
func (d Document) Themes() []string {
	themes := make([]string, 0, len(d.Points))
	for theme := range d.Points {
		themes = append(themes, theme)
	}
	sort.Strings(themes)
	return themes
}

// Clone returns a deep copy in canonical form: nil slices become empty
// and every map key is taken from the point's theme.
func (d Document) Clone() Document {
	out := Document{
		Slug:    d.Slug,
		Subject: d.Subject,
		Points:  make(map[string]Point, len(d.Points)),
	}
	for _, p := range d.Points {
		out.Points[p.Theme] = p.Clone()
	}
	return out
}

// Equal reports structural equality. Nil and empty slices compare equal.
func (d Document) Equal(other Document) bool {
	if d.Slug != other.Slug || d.Subject != other.Subject || len(d.Points) != len(other.Points) {
		return false
	}
	for theme, p := range d.Points {
		q, ok := other.Points[theme]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}

// Checksum returns the hex SHA-256 of the canonical JSON encoding.
func (d Document) Checksum() (string, error) {
	data, err := json.Marshal(d.Clone())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Clone returns a deep copy with non-nil slices.
func (p Point) Clone() Point {
	p.Evidence = append([]string{}, p.Evidence...)
	p.Sources = append([]string{}, p.Sources...)
	return p
}

// Equal reports field-by-field equality.
func (p Point) Equal(other Point) bool {
	return p.Theme == other.Theme &&
		p.Stance == other.Stance &&
		p.Confidence == other.Confidence &&
		slices.Equal(p.Evidence, other.Evidence) &&
		slices.Equal(p.Sources, other.Sources)
}

// DocumentSummary is a lightweight listing entry for a stored document.
type DocumentSummary struct {
	Slug       string    `json:"slug"`
	Subject    string    `json:"subject"`
	Head       int       `json:"head"`
	PointCount int       `json:"point_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary builds the listing entry for a document whose head is v and
// whose first version was written at createdAt.
func (v Version) Summary(createdAt time.Time) DocumentSummary {
	return DocumentSummary{
		Slug:       v.Slug,
		Subject:    v.Document.Subject,
		Head:       v.Number,
		PointCount: len(v.Document.Points),
		CreatedAt:  createdAt,
		UpdatedAt:  v.CreatedAt,
	}
}

// Matches reports whether query occurs, ignoring case, in the subject or
// any theme.
func (d Document) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(d.Subject), q) {
		return true
	}
	for theme := range d.Points {
		if strings.Contains(strings.ToLower(theme), q) {
			return true
		}
	}
	return false
}
