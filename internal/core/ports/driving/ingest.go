package driving

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
)

// Ingestor runs the ingestion pipeline over a geographic area.
type Ingestor interface {
	// RunIngestion pulls, normalises, deduplicates and persists facility
	// records for the bounding box and city. Stats are always returned,
	// even when every source fails; cancellation returns partial stats
	// alongside the context error. Only a systemic persistence outage
	// fails the run.
	RunIngestion(ctx context.Context, bounds domain.Bounds, city string) (*domain.IngestionStats, error)
}
