package domain

import "time"

// Station providers a cell can bind to for live hydrology readings.
const (
	ProviderUSGS            = "usgs_nwis"
	ProviderECCCHydrometric = "eccc_hydrometric"
	ProviderECCCClimate     = "eccc_climate"
	ProviderGBIF            = "gbif"
)

// Feature vector column indices. Order is the model's input contract;
// see the package documentation.
const (
	FeatTempAnomaly = iota
	FeatDistanceToSource
	FeatVesselTraffic
	FeatDissolvedOxygen
	FeatFlowVelocity

	FeatureCount
)

// Coordinate is a WGS-84 longitude/latitude pair in GeoJSON order.
type Coordinate [2]float64

// BoundingBox is the axis-aligned extent of a cell's boundary ring.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// StationRef binds a cell to one live hydrology source. The zero value means
// the cell has no live station and keeps its static baseline.
type StationRef struct {
	Provider string `yaml:"provider" json:"provider"`
	ID       string `yaml:"id" json:"id"`
}

// Bound reports whether the cell is tied to a live station.
func (s StationRef) Bound() bool { return s.Provider != "" && s.ID != "" }

// GeoCell is one polygonal grid region with its target species and the
// per-request mutable scoring state. Drivers and Citations only grow during
// a single pipeline run and are never touched after scoring.
type GeoCell struct {
	ID        string       `yaml:"id" json:"id"`
	Ring      []Coordinate `yaml:"ring" json:"ring"`
	Species   string       `yaml:"species" json:"species"`
	Features  []float64    `yaml:"features" json:"features"`
	Drivers   []string     `yaml:"drivers" json:"drivers"`
	Citations []string     `yaml:"citations" json:"citations"`
	Station   StationRef   `yaml:"station,omitempty" json:"station,omitempty"`
}

// BoundingBox returns the min/max of each coordinate axis across the ring.
// The zero box is returned for an empty ring.
func (c GeoCell) BoundingBox() BoundingBox {
	if len(c.Ring) == 0 {
		return BoundingBox{}
	}
	box := BoundingBox{
		MinLon: c.Ring[0][0], MaxLon: c.Ring[0][0],
		MinLat: c.Ring[0][1], MaxLat: c.Ring[0][1],
	}
	for _, p := range c.Ring[1:] {
		box.MinLon = min(box.MinLon, p[0])
		box.MaxLon = max(box.MaxLon, p[0])
		box.MinLat = min(box.MinLat, p[1])
		box.MaxLat = max(box.MaxLat, p[1])
	}
	return box
}

// Clone returns a deep copy so per-request enrichment never leaks into the
// static grid definitions.
func (c GeoCell) Clone() GeoCell {
	clone := c
	clone.Ring = append([]Coordinate(nil), c.Ring...)
	clone.Features = append([]float64(nil), c.Features...)
	clone.Drivers = append([]string(nil), c.Drivers...)
	clone.Citations = append([]string(nil), c.Citations...)
	return clone
}

// LiveReading is the normalized output of one hydrology adapter call.
// The zero value is the "unavailable" sentinel: a missing reading is a
// legitimate degraded-mode input, not an error.
type LiveReading struct {
	Discharge     *float64
	DischargeUnit string
	Temperature   *float64
	Citation      string
}

// OK reports whether the reading carries any live value.
func (r LiveReading) OK() bool { return r.Discharge != nil || r.Temperature != nil }

// OccurrenceRecord is one occurrence hit from the biodiversity search.
type OccurrenceRecord struct {
	ScientificName string  `json:"scientificName"`
	Lat            float64 `json:"decimalLatitude"`
	Lon            float64 `json:"decimalLongitude"`
	Year           int     `json:"year"`
}

// OccurrenceResult is the normalized output of one occurrence search.
// The zero value means no records (either genuinely zero or source
// unavailable; the distinction lives in the citation's presence).
type OccurrenceResult struct {
	Count    int
	Records  []OccurrenceRecord
	Citation string
}

// ScoredCell is a cell after composite scoring and narrative annotation.
type ScoredCell struct {
	GeoCell

	BaseScore   float64
	Score       float64
	Label       string
	Confidence  string
	Occurrences int
	Explanation string
	ScoredAt    time.Time
}
