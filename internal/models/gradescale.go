package models

import "time"

// GradeThreshold maps a percentage band to a letter grade. Bands are
// evaluated sorted by MinPercentage descending so overlapping bands resolve
// to the highest qualifying one.
type GradeThreshold struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	Label         string    `db:"label" json:"label"`
	MinPercentage float64   `db:"min_percentage" json:"min_percentage"`
	MaxPercentage float64   `db:"max_percentage" json:"max_percentage"`
	SortOrder     int       `db:"sort_order" json:"sort_order"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TieStrategy selects how equal overall percentages are ranked.
type TieStrategy string

const (
	// TiePositional assigns strictly sequential ranks (1,2,3,4) even on
	// exact ties, based on sort stability.
	TiePositional TieStrategy = "POSITIONAL"
	// TieCompetition assigns shared ranks with gaps (1,2,2,4).
	TieCompetition TieStrategy = "COMPETITION"
)

// Valid reports whether the strategy is a supported value.
func (s TieStrategy) Valid() bool {
	return s == TiePositional || s == TieCompetition
}

// UnmatchedBandPolicy controls grade resolution when a percentage falls in a
// gap between configured bands.
type UnmatchedBandPolicy string

const (
	// BandFallbackLowest returns the lowest band's label, so a percentage
	// is never left ungraded.
	BandFallbackLowest UnmatchedBandPolicy = "FALLBACK_LOWEST"
	// BandFallbackHighest returns the highest band's label.
	BandFallbackHighest UnmatchedBandPolicy = "FALLBACK_HIGHEST"
	// BandError surfaces an error instead of guessing.
	BandError UnmatchedBandPolicy = "ERROR"
)

// Valid reports whether the policy is a supported value.
func (p UnmatchedBandPolicy) Valid() bool {
	switch p {
	case BandFallbackLowest, BandFallbackHighest, BandError:
		return true
	default:
		return false
	}
}
