package driven

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
)

// SourceRegistry supplies the configured sources for a run.
type SourceRegistry interface {
	// List returns all configured sources ordered by priority rank.
	List(ctx context.Context) ([]domain.SourceConfig, error)
}
