package domain

import (
	"fmt"
	"math"
)

// Composite scoring constants.
const (
	// MaxSightingBoost caps the occurrence-driven boost so no single signal
	// dominates the model's base score.
	MaxSightingBoost = 0.3

	// IntersectionCellID names the one cell the compounding-risk heuristic
	// applies to. Grid-101 sits at the Lake Michigan approach where high
	// discharge and confirmed sightings together have historically preceded
	// colonization; the bonus encodes that one observation and must stay a
	// special case rather than become a rule engine.
	IntersectionCellID = "grid-101"

	// IntersectionDischargeThreshold is the live discharge above which the
	// intersection bonus can fire, in the station's native unit.
	IntersectionDischargeThreshold = 400.0

	// IntersectionBonus is the fixed increment added when the intersection
	// conditions hold.
	IntersectionBonus = 0.15

	// Clamp bounds for the final composite score.
	MinScore = 0.01
	MaxScore = 0.99
)

// Risk tier labels. The cutoffs are load-bearing; see the package docs.
const (
	LabelCritical = "Critical"
	LabelHigh     = "High"
	LabelModerate = "Moderate"
)

// SightingBoost converts an occurrence count into a bounded score boost:
// 0 for no records, otherwise min(0.3, 0.1*log10(count+1)). Monotonically
// non-decreasing in count.
func SightingBoost(count int) float64 {
	if count <= 0 {
		return 0
	}
	return min(MaxSightingBoost, 0.1*math.Log10(float64(count)+1))
}

// RiskLabel maps a final score to its tier.
func RiskLabel(score float64) string {
	switch {
	case score > 0.9:
		return LabelCritical
	case score > 0.6:
		return LabelHigh
	default:
		return LabelModerate
	}
}

// ClampScore bounds a composite score to [0.01, 0.99] and rounds to two
// decimal places.
func ClampScore(score float64) float64 {
	clamped := math.Max(MinScore, math.Min(MaxScore, score))
	return math.Round(clamped*100) / 100
}

// Score blends a cell's base model score with the sighting boost and the
// intersection bonus, clamps, labels, and records occurrence provenance.
//
// The intersection bonus fires only for the designated cell when its live
// discharge exceeds the threshold AND occurrences are nonzero. Both signals
// must hold at once, never either alone.
func Score(cell GeoCell, base float64, occ OccurrenceResult, reading LiveReading) ScoredCell {
	boost := SightingBoost(occ.Count)

	var bonus float64
	if cell.ID == IntersectionCellID &&
		reading.Discharge != nil && *reading.Discharge > IntersectionDischargeThreshold &&
		occ.Count > 0 {
		bonus = IntersectionBonus
	}

	composite := min(MaxScore, base+boost+bonus)

	out := ScoredCell{
		GeoCell:     cell.Clone(),
		BaseScore:   base,
		Score:       ClampScore(composite),
		Occurrences: occ.Count,
		ScoredAt:    clock.Now(),
	}
	out.Label = RiskLabel(out.Score)

	if occ.Count > 0 {
		out.Drivers = append(out.Drivers, fmt.Sprintf("%d recent occurrence records within cell bounds", occ.Count))
	}
	if bonus > 0 {
		out.Drivers = append(out.Drivers, "Compounding risk: elevated discharge coinciding with confirmed sightings")
	}
	out.Citations = appendCitation(out.Citations, occ.Citation)

	return out
}
