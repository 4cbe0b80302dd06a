package service

import (
	"fmt"
	"sort"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

// fallbackBand is one step of the hardcoded scale used when a school has no
// thresholds configured.
type fallbackBand struct {
	min   float64
	label string
}

// Checked top-down; anything below 50 lands on F.
var fallbackScale = []fallbackBand{
	{90, "A+"},
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{50, "D"},
}

const fallbackFloorLabel = "F"

// GradeResolver maps percentages to letter grades using a school's threshold
// bands. Resolvers are cheap value objects constructed per generation pass.
type GradeResolver struct {
	policy models.UnmatchedBandPolicy
}

// NewGradeResolver constructs a resolver with the given unmatched-band
// policy, defaulting to fallback-to-lowest.
func NewGradeResolver(policy models.UnmatchedBandPolicy) GradeResolver {
	if !policy.Valid() {
		policy = models.BandFallbackLowest
	}
	return GradeResolver{policy: policy}
}

// Resolve returns the letter grade for a percentage.
//
// With no thresholds the fixed fallback scale applies. Otherwise bands are
// scanned sorted by min percentage descending and the first band containing
// the percentage (boundaries inclusive) wins, so overlapping bands resolve
// to the highest qualifying one. A percentage matching no band is handled by
// the configured policy; the default never leaves a percentage ungraded,
// even when bands are gapped.
func (r GradeResolver) Resolve(percentage float64, thresholds []models.GradeThreshold) (string, error) {
	if len(thresholds) == 0 {
		for _, band := range fallbackScale {
			if percentage >= band.min {
				return band.label, nil
			}
		}
		return fallbackFloorLabel, nil
	}

	sorted := make([]models.GradeThreshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPercentage > sorted[j].MinPercentage
	})

	for _, band := range sorted {
		if percentage >= band.MinPercentage && percentage <= band.MaxPercentage {
			return band.Label, nil
		}
	}

	switch r.policy {
	case models.BandFallbackHighest:
		return sorted[0].Label, nil
	case models.BandError:
		return "", appErrors.Clone(appErrors.ErrUngradedBand,
			fmt.Sprintf("percentage %.2f matches no grade band", percentage))
	default:
		return sorted[len(sorted)-1].Label, nil
	}
}
