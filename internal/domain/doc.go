// Package domain models invasive-species colonization risk for Great Lakes
// grid cells.
//
// # Grid Cells
//
// The service scores a small fixed grid of polygonal cells, each tied to one
// target species. Cell definitions (boundary ring, baseline feature vector,
// historical drivers and citations) are hand-authored and ship with the
// binary; see the grid package. Cells are cloned fresh for every request,
// enriched in place by live-data overlays, scored once, and discarded.
//
// # Feature Vector
//
// Every cell carries a five-column feature vector whose order is the model's
// input contract and must match across all cells in one batch:
//
//	[0] water_temp_anomaly     degrees C above the seasonal baseline
//	[1] distance_to_source     km to the nearest established population
//	[2] vessel_traffic_density 0-1 score
//	[3] dissolved_oxygen       mg/L
//	[4] flow_velocity          live discharge / normalization constant
//
// Live hydrology readings, when available for a cell's bound station,
// overwrite columns 0 and 4; all other columns always come from the static
// baseline. See [Compose].
//
// # Data Sources
//
// Live readings come from the USGS NWIS instantaneous-values API (parameter
// codes 00060 discharge, 00010 water temperature) and the ECCC MSC GeoMet
// OGC API (hydrometric-realtime discharge by station number, climate-hourly
// air temperature by station name). Species occurrence counts come from the
// GBIF occurrence search API, queried by scientific name over the cell's
// bounding box. Common names resolve through a fixed lookup table; see
// [ScientificName].
//
// Every reading and occurrence lookup contributes a citation string naming
// its provider. Citations are audit metadata and double as the input to the
// per-provider health report: a provider with no citation anywhere in a
// response batch is reported degraded. See [BuildHealthReport].
//
// # Scoring
//
// The composite score blends the regression model's base score with a
// bounded sighting boost and a single hard-coded intersection bonus (see
// [Score]), clamps to [0.01, 0.99], and rounds to two decimals. Risk tiers:
//
//	Critical  score > 0.9
//	High      score > 0.6
//	Moderate  otherwise
//
// The tier cutoffs are load-bearing; dashboards downstream key styling and
// alerting off the exact labels.
package domain
