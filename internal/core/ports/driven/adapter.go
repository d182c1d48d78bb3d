package driven

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
)

// SourceAdapter pulls candidate records from one provider.
// Each adapter is a pure transform from provider payloads to raw records:
// it probes provider-specific field spellings, skips malformed elements and
// returns an error only when the whole source is unusable for the run.
type SourceAdapter interface {
	// Name returns the configured source name.
	Name() string

	// Source returns the provenance stamp for records from this adapter.
	Source() domain.Source

	// Fetch pulls raw records for the bounding box and city.
	// A failed fetch returns (nil, error); the pipeline proceeds with the
	// remaining sources.
	Fetch(ctx context.Context, bounds domain.Bounds, city string) ([]domain.RawRecord, error)
}

// AdapterFactory builds a SourceAdapter from a source configuration.
type AdapterFactory interface {
	// Create returns the adapter for the configured source type.
	// Unknown types return an error wrapping domain.ErrUnsupportedType.
	Create(cfg domain.SourceConfig) (SourceAdapter, error)
}
