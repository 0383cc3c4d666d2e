package domain

// Alignment classifies two stances on the same theme.
type Alignment string

// Alignments.
const (
	AlignmentAgreement Alignment = "agreement"
	AlignmentTension   Alignment = "tension"
)

// PointComparison pairs the points two documents hold on one theme.
type PointComparison struct {
	Theme     string    `json:"theme"`
	A         Point     `json:"a"`
	B         Point     `json:"b"`
	Alignment Alignment `json:"alignment"`
}

// Comparison is a cross-document comparison of two subjects.
type Comparison struct {
	SubjectA   string            `json:"subject_a"`
	SubjectB   string            `json:"subject_b"`
	Agreements []PointComparison `json:"agreements"`
	Tensions   []PointComparison `json:"tensions"`
	UniqueToA  []Point           `json:"unique_to_a"`
	UniqueToB  []Point           `json:"unique_to_b"`

	// Similarity is agreements over all compared themes, 0 when empty.
	Similarity float64 `json:"similarity"`
}

// Blindspot is a theme other documents address that the target lacks.
type Blindspot struct {
	Subject      string   `json:"subject"`
	MissingTheme string   `json:"missing_theme"`
	AddressedBy  []string `json:"addressed_by"`
	Examples     []Point  `json:"examples"`
}
