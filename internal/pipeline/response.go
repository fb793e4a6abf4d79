package pipeline

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/model"
)

// clock is a package-level time source so tests can freeze generated_at.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for response assembly. Pass nil to reset.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// PredictionsResponse is the geographic feature collection served by
// GET /predict.
type PredictionsResponse struct {
	Metadata Metadata `json:"metadata"`
	Regions  []Region `json:"regions"`
}

// Metadata describes the batch: model version, source summary, and the
// per-provider health report.
type Metadata struct {
	ModelVersion string              `json:"model_version"`
	Source       string              `json:"source"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Sources      domain.HealthReport `json:"sources"`
}

// Region is one scored cell as a GeoJSON-style feature.
type Region struct {
	ID         string     `json:"id"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON polygon: one outer ring in lon/lat order.
type Geometry struct {
	Type        string                `json:"type"`
	Coordinates [][]domain.Coordinate `json:"coordinates"`
}

// Properties carries a region's risk assessment.
type Properties struct {
	RiskScore   float64  `json:"risk_score"`
	RiskLabel   string   `json:"risk_label"`
	Confidence  string   `json:"confidence"`
	Species     string   `json:"species"`
	Drivers     []string `json:"drivers"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}

const sourceSummary = "USGS NWIS + ECCC GeoMet + GBIF + OpenAI"

// assemble packages scored cells into the response shape and derives the
// health report from the batch's citations.
func (p *Pipeline) assemble(cells []domain.ScoredCell) PredictionsResponse {
	regions := make([]Region, len(cells))
	for i, c := range cells {
		regions[i] = Region{
			ID: c.ID,
			Geometry: Geometry{
				Type:        "Polygon",
				Coordinates: [][]domain.Coordinate{c.Ring},
			},
			Properties: Properties{
				RiskScore:   c.Score,
				RiskLabel:   c.Label,
				Confidence:  c.Confidence,
				Species:     c.Species,
				Drivers:     c.Drivers,
				Explanation: c.Explanation,
				Citations:   c.Citations,
			},
		}
	}

	return PredictionsResponse{
		Metadata: Metadata{
			ModelVersion: p.modelVersion(),
			Source:       sourceSummary,
			GeneratedAt:  clock.Now().UTC(),
			Sources:      domain.BuildHealthReport(cells),
		},
		Regions: regions,
	}
}

func (p *Pipeline) modelVersion() string {
	if p.scorer == nil {
		return model.FallbackVersion
	}
	return p.scorer.Version()
}
