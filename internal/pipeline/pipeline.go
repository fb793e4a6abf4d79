// Package pipeline orchestrates one scoring batch end to end: live-data
// adapters fan out, the feature composer overlays readings, the model scores
// the batch, per-cell composite scoring and narrative generation fan out,
// and the response assembler packages the result. All state is local to one
// request and discarded afterwards.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/grid"
	"github.com/couchcryptid/invasive-risk-service/internal/model"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// BatchScorer is the risk model's serving surface. A nil scorer means the
// artifact failed to load and fixed fallback scores serve instead.
type BatchScorer interface {
	Predict(batch [][]float64) ([]float64, error)
	Version() string
}

// Publisher exports scored cells after assembly. Failures are logged, never
// surfaced to the response.
type Publisher interface {
	Publish(ctx context.Context, cells []domain.ScoredCell) error
}

// Sources bundles the upstream data adapters.
type Sources struct {
	// Stations maps a provider name (domain.Provider* constants) to its
	// reader. Cells bound to an unlisted provider degrade to baseline.
	Stations map[string]domain.StationReader

	// Occurrences searches species records per cell; nil disables lookups.
	Occurrences domain.OccurrenceSearcher
}

// Pipeline runs scoring batches. Construct once at startup; all fields are
// read-only afterwards.
type Pipeline struct {
	grid      *grid.Grid
	sources   Sources
	scorer    BatchScorer
	narrator  domain.Narrator
	publisher Publisher
	threshold float64
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. scorer, narrator, and publisher may be nil for
// degraded/disabled modes.
func New(g *grid.Grid, sources Sources, scorer BatchScorer, narrator domain.Narrator, publisher Publisher, threshold float64, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		grid:      g,
		sources:   sources,
		scorer:    scorer,
		narrator:  narrator,
		publisher: publisher,
		threshold: threshold,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the grid is loaded and scoring can serve.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.grid == nil || p.grid.Len() == 0 {
		return errors.New("cell grid not loaded")
	}
	return nil
}

// Predict runs one scoring batch. Upstream faults degrade to baseline data;
// the only error returned is an internal one.
func (p *Pipeline) Predict(ctx context.Context) (PredictionsResponse, error) {
	start := time.Now()
	p.metrics.PredictRequests.Inc()

	cells := p.grid.Snapshot()
	readings := p.fetchReadings(ctx, cells)

	for i := range cells {
		cells[i] = domain.Compose(cells[i], readings[stationKey(cells[i].Station)])
	}

	base := p.baseScores(cells)

	scored := make([]domain.ScoredCell, len(cells))
	var g errgroup.Group
	for i := range cells {
		g.Go(func() error {
			occ := p.lookupOccurrences(ctx, cells[i])
			sc := domain.Score(cells[i], base[i], occ, readings[stationKey(cells[i].Station)])
			sc.Confidence = p.confidence()
			sc.Explanation = p.narrate(ctx, sc)
			scored[i] = sc
			return nil
		})
	}
	_ = g.Wait()

	p.metrics.CellsScored.Add(float64(len(scored)))
	p.metrics.PredictDuration.Observe(time.Since(start).Seconds())

	resp := p.assemble(scored)
	p.export(ctx, scored)
	return resp, nil
}

// fetchReadings fans out one request per distinct station and returns the
// readings keyed by station. Any fault yields the unavailable sentinel for
// that station; no retries.
func (p *Pipeline) fetchReadings(ctx context.Context, cells []domain.GeoCell) map[string]domain.LiveReading {
	type refReading struct {
		key     string
		reading domain.LiveReading
	}

	var refs []domain.StationRef
	seen := map[string]bool{}
	for _, c := range cells {
		key := stationKey(c.Station)
		if !c.Station.Bound() || seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, c.Station)
	}

	results := make([]refReading, len(refs))
	var g errgroup.Group
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = refReading{key: stationKey(ref), reading: p.readStation(ctx, ref)}
			return nil
		})
	}
	_ = g.Wait()

	readings := make(map[string]domain.LiveReading, len(results))
	for _, r := range results {
		readings[r.key] = r.reading
	}
	return readings
}

// readStation resolves one station reading, converting any fault into the
// unavailable sentinel.
func (p *Pipeline) readStation(ctx context.Context, ref domain.StationRef) domain.LiveReading {
	reader, ok := p.sources.Stations[ref.Provider]
	if !ok {
		p.logger.Warn("no reader for station provider", "provider", ref.Provider, "station", ref.ID)
		return domain.LiveReading{}
	}

	reading, err := reader.StationReading(ctx, ref.ID)
	if err != nil {
		p.logger.Warn("live reading unavailable, using baseline",
			"provider", ref.Provider, "station", ref.ID, "error", err)
		return domain.LiveReading{}
	}
	return reading
}

// lookupOccurrences searches species records for one cell. Unknown species
// short-circuit to zero without a network call; faults degrade to zero.
func (p *Pipeline) lookupOccurrences(ctx context.Context, cell domain.GeoCell) domain.OccurrenceResult {
	sci, ok := domain.ScientificName(cell.Species)
	if !ok {
		p.logger.Debug("species not in lookup table, skipping occurrence search",
			"cell", cell.ID, "species", cell.Species)
		return domain.OccurrenceResult{}
	}
	if p.sources.Occurrences == nil {
		return domain.OccurrenceResult{}
	}

	result, err := p.sources.Occurrences.Search(ctx, sci, cell.BoundingBox())
	if err != nil {
		p.logger.Warn("occurrence search unavailable, assuming zero records",
			"cell", cell.ID, "species", sci, "error", err)
		return domain.OccurrenceResult{}
	}
	return result
}

// baseScores runs the model over the batch, or cycles the fixed fallback
// scores in degraded mode.
func (p *Pipeline) baseScores(cells []domain.GeoCell) []float64 {
	if p.scorer == nil {
		return model.Fallback(len(cells))
	}

	batch := make([][]float64, len(cells))
	for i, c := range cells {
		batch[i] = c.Features
	}

	scores, err := p.scorer.Predict(batch)
	if err != nil {
		// Grid validation should make this unreachable; degrade rather
		// than fail the request if it ever happens.
		p.logger.Error("model predict failed, using fallback scores", "error", err)
		return model.Fallback(len(cells))
	}
	return scores
}

func (p *Pipeline) confidence() string {
	if p.scorer == nil {
		return "Low"
	}
	return "High"
}

// narrate resolves a cell's explanation: the nominal message below the
// threshold, generated text above it, and the static fallback on any fault.
func (p *Pipeline) narrate(ctx context.Context, sc domain.ScoredCell) string {
	if sc.Score <= p.threshold {
		p.metrics.NarrativeRequests.WithLabelValues("skipped").Inc()
		return domain.NominalNarrative
	}
	if p.narrator == nil {
		return domain.FallbackNarrative
	}

	text, err := p.narrator.Narrate(ctx, sc.Species, int(math.Round(sc.Score*100)), sc.Drivers, sc.Citations)
	if err != nil {
		p.logger.Warn("narrative generation failed, using fallback",
			"cell", sc.ID, "error", err)
		return domain.FallbackNarrative
	}
	return text
}

// export hands the batch to the publisher. Export failures never affect the
// response.
func (p *Pipeline) export(ctx context.Context, cells []domain.ScoredCell) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, cells); err != nil {
		p.logger.Warn("scored-cell export failed", "error", err)
	}
}

func stationKey(ref domain.StationRef) string {
	return ref.Provider + "|" + ref.ID
}
