// Package seed serves statically configured facility records. Seed sources
// carry curated data for areas no provider covers; they never touch the
// network.
package seed

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Adapter serves the seed set of a source configuration.
type Adapter struct {
	cfg domain.SourceConfig
}

// New creates a seed adapter for the configured source.
func New(cfg domain.SourceConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// Name returns the configured source name.
func (a *Adapter) Name() string { return a.cfg.Name }

// Source returns the provenance stamp for records from this adapter.
func (a *Adapter) Source() domain.Source { return a.cfg.Source }

// Fetch returns the configured seeds as raw records. Seeds still pass
// through the normaliser so the usual validation and scoring apply.
func (a *Adapter) Fetch(_ context.Context, _ domain.Bounds, _ string) ([]domain.RawRecord, error) {
	records := make([]domain.RawRecord, 0, len(a.cfg.Seeds))
	for _, s := range a.cfg.Seeds {
		records = append(records, domain.RawRecord{
			Name:       optional(s.Name),
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			Access:     s.Access,
			Gender:     s.Gender,
			Wheelchair: s.Wheelchair,
			Operator:   optional(s.Operator),
		})
	}
	return records, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
