package domain

import (
	"fmt"
	"slices"
)

// Reference constants for live-data overlays.
const (
	// BaselineWaterTempC is the fixed seasonal reference temperature the
	// anomaly column is measured against.
	BaselineWaterTempC = 11.0

	// FlowNormalization scales raw discharge into the model's 0-ish..1-ish
	// flow_velocity column. Matches the scale the model was trained on.
	FlowNormalization = 350.0
)

// Compose overlays a live reading onto a cell's static baseline features and
// returns the enriched cell. Cells without a reading pass through untouched.
//
// When the reading carries a live value, the corresponding feature column is
// overwritten (never accumulated), a driver describing the live value is
// prepended, and the reading's citation is appended once. Composing the same
// cell with the same reading twice therefore yields the same vector, and the
// vector length never changes.
func Compose(cell GeoCell, reading LiveReading) GeoCell {
	if !reading.OK() {
		return cell
	}

	out := cell.Clone()

	if reading.Temperature != nil && len(out.Features) > FeatTempAnomaly {
		anomaly := *reading.Temperature - BaselineWaterTempC
		out.Features[FeatTempAnomaly] = anomaly
		out.Drivers = append([]string{
			fmt.Sprintf("Live thermal anomaly %+.1f°C vs %.1f°C seasonal baseline", anomaly, BaselineWaterTempC),
		}, out.Drivers...)
	}

	if reading.Discharge != nil && len(out.Features) > FeatFlowVelocity {
		out.Features[FeatFlowVelocity] = *reading.Discharge / FlowNormalization
		unit := reading.DischargeUnit
		if unit == "" {
			unit = "m³/s"
		}
		out.Drivers = append([]string{
			fmt.Sprintf("Live discharge %.1f %s", *reading.Discharge, unit),
		}, out.Drivers...)
	}

	out.Citations = appendCitation(out.Citations, reading.Citation)
	return out
}

// appendCitation appends a citation unless it is empty or already present.
// Citations are set-like within one cell's lifecycle.
func appendCitation(citations []string, citation string) []string {
	if citation == "" || slices.Contains(citations, citation) {
		return citations
	}
	return append(citations, citation)
}
