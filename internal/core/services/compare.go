package services

import (
	"context"
	"sort"
	"strings"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// Ensure CompareService implements the interface.
var _ driving.CompareService = (*CompareService)(nil)

// negationMarkers flag a stance as opposing its theme.
var negationMarkers = []string{"not", "against", "oppose", "reject", "deny"}

// CompareService compares the latest snapshots of different documents.
// Themes are matched case-insensitively after trimming.
type CompareService struct {
	store driven.SnapshotStore
}

// NewCompareService creates a new compare service.
func NewCompareService(store driven.SnapshotStore) *CompareService {
	return &CompareService{store: store}
}

func (s *CompareService) latest(ctx context.Context, slug string) (domain.Document, error) {
	head, err := s.store.Head(ctx, slug)
	if err != nil {
		return domain.Document{}, err
	}
	v, err := s.store.GetVersion(ctx, slug, head)
	if err != nil {
		return domain.Document{}, err
	}
	return v.Document, nil
}

// Compare matches two documents theme by theme.
func (s *CompareService) Compare(ctx context.Context, slugA, slugB string) (*domain.Comparison, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	a, err := s.latest(ctx, slugA)
	if err != nil {
		return nil, err
	}
	b, err := s.latest(ctx, slugB)
	if err != nil {
		return nil, err
	}
	return compareDocuments(a, b), nil
}

func compareDocuments(a, b domain.Document) *domain.Comparison {
	byTheme := make(map[string]domain.Point, len(b.Points))
	for _, p := range b.Points {
		byTheme[normalizeTheme(p.Theme)] = p
	}

	cmp := &domain.Comparison{
		SubjectA:   a.Subject,
		SubjectB:   b.Subject,
		Agreements: []domain.PointComparison{},
		Tensions:   []domain.PointComparison{},
		UniqueToA:  []domain.Point{},
		UniqueToB:  []domain.Point{},
	}

	matched := make(map[string]bool)
	for _, theme := range a.Themes() {
		pa := a.Points[theme]
		key := normalizeTheme(theme)
		pb, ok := byTheme[key]
		if !ok {
			cmp.UniqueToA = append(cmp.UniqueToA, pa)
			continue
		}
		matched[key] = true
		pc := domain.PointComparison{Theme: theme, A: pa, B: pb, Alignment: alignment(pa.Stance, pb.Stance)}
		if pc.Alignment == domain.AlignmentTension {
			cmp.Tensions = append(cmp.Tensions, pc)
		} else {
			cmp.Agreements = append(cmp.Agreements, pc)
		}
	}
	for _, theme := range b.Themes() {
		if !matched[normalizeTheme(theme)] {
			cmp.UniqueToB = append(cmp.UniqueToB, b.Points[theme])
		}
	}

	total := len(cmp.Agreements) + len(cmp.Tensions) + len(cmp.UniqueToA) + len(cmp.UniqueToB)
	if total > 0 {
		cmp.Similarity = float64(len(cmp.Agreements)) / float64(total)
	}
	return cmp
}

// Blindspots lists themes the other documents address that target lacks,
// ordered by theme.
func (s *CompareService) Blindspots(ctx context.Context, target string, others []string) ([]domain.Blindspot, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	t, err := s.latest(ctx, target)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(others))
	for _, slug := range others {
		d, err := s.latest(ctx, slug)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return findBlindspots(t, docs), nil
}

func findBlindspots(target domain.Document, others []domain.Document) []domain.Blindspot {
	covered := make(map[string]bool, len(target.Points))
	for theme := range target.Points {
		covered[normalizeTheme(theme)] = true
	}

	spots := make(map[string]*domain.Blindspot)
	for _, other := range others {
		for _, theme := range other.Themes() {
			key := normalizeTheme(theme)
			if covered[key] {
				continue
			}
			spot, ok := spots[key]
			if !ok {
				spot = &domain.Blindspot{Subject: target.Subject, MissingTheme: theme}
				spots[key] = spot
			}
			spot.AddressedBy = append(spot.AddressedBy, other.Subject)
			spot.Examples = append(spot.Examples, other.Points[theme])
		}
	}

	keys := make([]string, 0, len(spots))
	for key := range spots {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]domain.Blindspot, 0, len(keys))
	for _, key := range keys {
		result = append(result, *spots[key])
	}
	return result
}

func normalizeTheme(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// alignment is a tension when exactly one stance carries a negation marker.
func alignment(a, b string) domain.Alignment {
	if isNegative(a) != isNegative(b) {
		return domain.AlignmentTension
	}
	return domain.AlignmentAgreement
}

func isNegative(stance string) bool {
	lower := strings.ToLower(stance)
	for _, marker := range negationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
