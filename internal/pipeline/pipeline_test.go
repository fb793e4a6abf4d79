package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/grid"
	"github.com/couchcryptid/invasive-risk-service/internal/model"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// Hand-written mocks in the adapter shapes the pipeline consumes.

type mockStation struct {
	reading domain.LiveReading
	err     error
	calls   int
}

func (m *mockStation) StationReading(context.Context, string) (domain.LiveReading, error) {
	m.calls++
	return m.reading, m.err
}

type mockSearcher struct {
	mu     sync.Mutex
	result domain.OccurrenceResult
	err    error
	names  []string
}

func (m *mockSearcher) Search(_ context.Context, name string, _ domain.BoundingBox) (domain.OccurrenceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	r := m.result
	if r.Citation == "" && m.err == nil {
		r.Citation = "GBIF occurrence search (" + name + ")"
	}
	return r, m.err
}

type mockScorer struct {
	scores  []float64
	err     error
	version string
}

func (m *mockScorer) Predict([][]float64) ([]float64, error) { return m.scores, m.err }
func (m *mockScorer) Version() string                        { return m.version }

type mockNarrator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (m *mockNarrator) Narrate(_ context.Context, _ string, _ int, _, _ []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.text, m.err
}

type mockPublisher struct {
	mu    sync.Mutex
	cells []domain.ScoredCell
	err   error
}

func (m *mockPublisher) Publish(_ context.Context, cells []domain.ScoredCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = cells
	return m.err
}

func f64(v float64) *float64 { return &v }

type fixture struct {
	usgs      *mockStation
	hydro     *mockStation
	climate   *mockStation
	searcher  *mockSearcher
	scorer    *mockScorer
	narrator  *mockNarrator
	publisher *mockPublisher
}

func defaultFixture() *fixture {
	return &fixture{
		usgs: &mockStation{reading: domain.LiveReading{
			Discharge: f64(450.0), DischargeUnit: "ft³/s", Temperature: f64(18.2),
			Citation: "USGS NWIS 04085427",
		}},
		hydro: &mockStation{reading: domain.LiveReading{
			Discharge: f64(120.0), DischargeUnit: "m³/s",
			Citation: "ECCC hydrometric station 02HA006",
		}},
		climate: &mockStation{reading: domain.LiveReading{
			Temperature: f64(12.5),
			Citation:    "ECCC climate-hourly TORONTO CITY",
		}},
		searcher:  &mockSearcher{result: domain.OccurrenceResult{Count: 10}},
		scorer:    &mockScorer{scores: []float64{0.7, 0.4, 0.8, 0.6}, version: "v1.0-sklearn-rf"},
		narrator:  &mockNarrator{text: "Generated assessment."},
		publisher: &mockPublisher{},
	}
}

func newTestPipeline(t *testing.T, fx *fixture) *Pipeline {
	t.Helper()
	g, err := grid.Load("")
	require.NoError(t, err)

	sources := Sources{
		Stations: map[string]domain.StationReader{
			domain.ProviderUSGS:            fx.usgs,
			domain.ProviderECCCHydrometric: fx.hydro,
			domain.ProviderECCCClimate:     fx.climate,
		},
		Occurrences: fx.searcher,
	}

	var scorer BatchScorer
	if fx.scorer != nil {
		scorer = fx.scorer
	}
	var narrator domain.Narrator
	if fx.narrator != nil {
		narrator = fx.narrator
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(g, sources, scorer, narrator, fx.publisher, 0.5, logger, observability.NewMetricsForTesting())
}

func regionByID(t *testing.T, resp PredictionsResponse, id string) Region {
	t.Helper()
	for _, r := range resp.Regions {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("region %s not in response", id)
	return Region{}
}

func TestPredict_HappyPath(t *testing.T) {
	frozen := time.Date(2026, time.May, 14, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	fx := defaultFixture()
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Regions, 4)

	assert.Equal(t, "v1.0-sklearn-rf", resp.Metadata.ModelVersion)
	assert.Equal(t, frozen, resp.Metadata.GeneratedAt)
	for provider, status := range resp.Metadata.Sources {
		assert.Equal(t, domain.StatusNominal, status, provider)
	}

	// grid-101: base 0.7 + boost 0.1*log10(11) + intersection 0.15 -> 0.95.
	lamprey := regionByID(t, resp, "grid-101")
	assert.Equal(t, 0.95, lamprey.Properties.RiskScore)
	assert.Equal(t, domain.LabelCritical, lamprey.Properties.RiskLabel)
	assert.Equal(t, "High", lamprey.Properties.Confidence)
	assert.Equal(t, "Generated assessment.", lamprey.Properties.Explanation)
	assert.Contains(t, lamprey.Properties.Citations, "USGS NWIS 04085427")
	assert.Contains(t, lamprey.Properties.Drivers, "Compounding risk: elevated discharge coinciding with confirmed sightings")
	assert.Equal(t, "Polygon", lamprey.Geometry.Type)
	require.Len(t, lamprey.Geometry.Coordinates, 1)
	assert.Len(t, lamprey.Geometry.Coordinates[0], 5)

	// grid-102: base 0.4 + boost -> 0.5, at the threshold, nominal message.
	carp := regionByID(t, resp, "grid-102")
	assert.Equal(t, 0.5, carp.Properties.RiskScore)
	assert.Equal(t, domain.LabelModerate, carp.Properties.RiskLabel)
	assert.Equal(t, domain.NominalNarrative, carp.Properties.Explanation)

	// grid-103: base 0.8 + boost -> 0.9, exactly the High/Critical boundary.
	complexCell := regionByID(t, resp, "grid-103")
	assert.Equal(t, 0.9, complexCell.Properties.RiskScore)
	assert.Equal(t, domain.LabelHigh, complexCell.Properties.RiskLabel)

	// One station fetch per distinct station, one search per cell.
	assert.Equal(t, 1, fx.usgs.calls)
	assert.Equal(t, 1, fx.hydro.calls)
	assert.Equal(t, 1, fx.climate.calls)
	assert.Len(t, fx.searcher.names, 4)

	// The batch was exported.
	assert.Len(t, fx.publisher.cells, 4)
}

func TestPredict_HydrologyTimeoutFallsBackToBaseline(t *testing.T) {
	fx := defaultFixture()
	fx.usgs = &mockStation{err: context.DeadlineExceeded}
	fx.searcher = &mockSearcher{result: domain.OccurrenceResult{Count: 0}}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	lamprey := regionByID(t, resp, "grid-101")
	// Baseline drivers only: no live overlay strings.
	assert.Equal(t, []string{"High thermal anomaly (+1.8°C)", "Proximity to source (12km)", "High vessel traffic"},
		lamprey.Properties.Drivers)
	assert.NotContains(t, lamprey.Properties.Citations, "USGS NWIS 04085427")

	assert.Equal(t, domain.StatusDegraded, resp.Metadata.Sources[domain.ProviderUSGS])
	assert.Equal(t, domain.StatusNominal, resp.Metadata.Sources[domain.ProviderECCCHydrometric])
}

func TestPredict_OccurrenceSearchFailureAssumesZero(t *testing.T) {
	fx := defaultFixture()
	fx.searcher = &mockSearcher{err: errors.New("gbif down")}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	// No boost anywhere: grid-102's score is exactly its clamped base.
	carp := regionByID(t, resp, "grid-102")
	assert.Equal(t, domain.ClampScore(0.4), carp.Properties.RiskScore)
	assert.Equal(t, domain.StatusDegraded, resp.Metadata.Sources[domain.ProviderGBIF])
}

func TestPredict_SilverCarpZeroRecordsScoresClampedBase(t *testing.T) {
	fx := defaultFixture()
	fx.searcher = &mockSearcher{result: domain.OccurrenceResult{Count: 0}}
	fx.usgs.reading = domain.LiveReading{}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	carp := regionByID(t, resp, "grid-102")
	assert.Equal(t, "Silver Carp", carp.Properties.Species)
	assert.Equal(t, domain.ClampScore(0.4), carp.Properties.RiskScore)
}

func TestPredict_NarrativeFailureUsesFallback(t *testing.T) {
	fx := defaultFixture()
	fx.narrator = &mockNarrator{err: errors.New("quota exceeded")}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	lamprey := regionByID(t, resp, "grid-101")
	assert.Equal(t, domain.FallbackNarrative, lamprey.Properties.Explanation)

	// Below-threshold cells still get the nominal message, not the fallback.
	carp := regionByID(t, resp, "grid-102")
	assert.Equal(t, domain.NominalNarrative, carp.Properties.Explanation)
}

func TestPredict_NoNarratorUsesFallbackAboveThreshold(t *testing.T) {
	fx := defaultFixture()
	fx.narrator = nil
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	lamprey := regionByID(t, resp, "grid-101")
	assert.Equal(t, domain.FallbackNarrative, lamprey.Properties.Explanation)
}

func TestPredict_ModelUnavailableServesFallbackScores(t *testing.T) {
	fx := defaultFixture()
	fx.scorer = nil
	fx.searcher = &mockSearcher{result: domain.OccurrenceResult{Count: 0}}
	fx.usgs.reading = domain.LiveReading{}
	fx.hydro.reading = domain.LiveReading{}
	fx.climate.reading = domain.LiveReading{}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.FallbackVersion, resp.Metadata.ModelVersion)
	// Fallback constants apply in grid order.
	want := model.FallbackScores
	for i, region := range resp.Regions {
		assert.Equal(t, domain.ClampScore(want[i]), region.Properties.RiskScore, region.ID)
		assert.Equal(t, "Low", region.Properties.Confidence, region.ID)
	}
}

func TestPredict_PredictErrorDegradesToFallback(t *testing.T) {
	fx := defaultFixture()
	fx.scorer = &mockScorer{err: errors.New("width mismatch"), version: "v1.0-sklearn-rf"}
	fx.searcher = &mockSearcher{result: domain.OccurrenceResult{Count: 0}}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Regions, 4)
}

func TestPredict_PublisherFailureDoesNotAffectResponse(t *testing.T) {
	fx := defaultFixture()
	fx.publisher = &mockPublisher{err: errors.New("broker gone")}
	p := newTestPipeline(t, fx)

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Regions, 4)
}

func TestPredict_UnknownSpeciesSkipsSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cells:
  - id: test-1
    species: Mystery Minnow
    ring: [[-80.0, 42.0], [-79.5, 42.0], [-79.5, 42.5], [-80.0, 42.0]]
    features: [0.5, 10.0, 0.4, 8.0, 0.3]
    drivers: ["Test driver"]
    citations: ["Test citation"]
`), 0o600))
	g, err := grid.Load(path)
	require.NoError(t, err)

	fx := defaultFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(g, Sources{Occurrences: fx.searcher}, fx.scorer, fx.narrator, nil, 0.5,
		logger, observability.NewMetricsForTesting())

	resp, err := p.Predict(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Regions, 1)
	assert.Empty(t, fx.searcher.names, "unknown species must not hit the search API")
}

func TestCheckReadiness(t *testing.T) {
	fx := defaultFixture()
	p := newTestPipeline(t, fx)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	empty := &Pipeline{}
	assert.Error(t, empty.CheckReadiness(context.Background()))
}
