package domain

import "context"

// StationReader fetches the most recent reading for one station. Adapters
// return errors to the pipeline, which converts them into the unavailable
// sentinel; a fault never reaches the response.
type StationReader interface {
	StationReading(ctx context.Context, stationID string) (LiveReading, error)
}

// OccurrenceSearcher looks up occurrence records for a species within a
// bounding box.
type OccurrenceSearcher interface {
	Search(ctx context.Context, scientificName string, box BoundingBox) (OccurrenceResult, error)
}

// Narrator produces a short natural-language risk assessment.
type Narrator interface {
	Narrate(ctx context.Context, species string, scorePct int, drivers, citations []string) (string, error)
}
