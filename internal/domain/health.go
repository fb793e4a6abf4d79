package domain

import "strings"

// Health statuses for the per-provider report.
const (
	StatusNominal  = "nominal"
	StatusDegraded = "degraded"
)

// providerMarkers maps provider names to the substring their citations carry.
var providerMarkers = map[string]string{
	ProviderUSGS:            "USGS NWIS",
	ProviderECCCHydrometric: "ECCC hydrometric",
	ProviderECCCClimate:     "ECCC climate-hourly",
	ProviderGBIF:            "GBIF",
}

// HealthReport maps provider name to nominal/degraded for one response batch.
type HealthReport map[string]string

// BuildHealthReport derives per-provider status by scanning all citations in
// a scored batch for provider-name substrings. A provider is nominal iff any
// citation mentions it. This is an approximation, not a real health check:
// a provider no cell is bound to will always read degraded.
func BuildHealthReport(cells []ScoredCell) HealthReport {
	report := make(HealthReport, len(providerMarkers))
	for provider, marker := range providerMarkers {
		report[provider] = StatusDegraded
		for _, cell := range cells {
			if citationsMention(cell.Citations, marker) {
				report[provider] = StatusNominal
				break
			}
		}
	}
	return report
}

func citationsMention(citations []string, marker string) bool {
	for _, c := range citations {
		if strings.Contains(c, marker) {
			return true
		}
	}
	return false
}
