package providers

import (
	"fmt"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/providers/government"
	"github.com/openamenity/amenity-ingest/internal/providers/overpass"
	"github.com/openamenity/amenity-ingest/internal/providers/regional"
	"github.com/openamenity/amenity-ingest/internal/providers/seed"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// Factory builds source adapters from source configurations.
// All network-backed adapters share the injected fetcher, so the per-host
// spacing and global in-flight cap hold across sources.
type Factory struct {
	fetcher driven.Fetcher
}

// NewFactory creates an adapter factory over the shared fetcher.
func NewFactory(fetcher driven.Fetcher) *Factory {
	return &Factory{fetcher: fetcher}
}

// Create returns the adapter for the configured source type.
func (f *Factory) Create(cfg domain.SourceConfig) (driven.SourceAdapter, error) {
	switch cfg.Type {
	case "overpass":
		return overpass.New(cfg, f.fetcher), nil
	case "government":
		return government.New(cfg, f.fetcher), nil
	case "regional":
		return regional.New(cfg, f.fetcher), nil
	case "seed":
		return seed.New(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, cfg.Type)
	}
}
