// Package regional pulls facility records from regional aggregator feeds,
// which publish GeoJSON FeatureCollections.
package regional

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/logger"
	"github.com/openamenity/amenity-ingest/internal/providers/probe"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Adapter fetches facility records from a GeoJSON feed.
type Adapter struct {
	cfg     domain.SourceConfig
	fetcher driven.Fetcher
}

// New creates a regional feed adapter for the configured source.
func New(cfg domain.SourceConfig, fetcher driven.Fetcher) *Adapter {
	return &Adapter{cfg: cfg, fetcher: fetcher}
}

// Name returns the configured source name.
func (a *Adapter) Name() string { return a.cfg.Name }

// Source returns the provenance stamp for records from this adapter.
func (a *Adapter) Source() domain.Source { return a.cfg.Source }

// feature is the subset of GeoJSON this adapter consumes.
type feature struct {
	Geometry struct {
		Type        string `json:"type"`
		Coordinates []any  `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Fetch downloads the feed and parses Point features. Features without a
// point geometry are skipped; an unparseable feed fails the whole source.
func (a *Adapter) Fetch(ctx context.Context, _ domain.Bounds, city string) ([]domain.RawRecord, error) {
	endpoint := strings.ReplaceAll(a.cfg.Endpoint, "{{city}}", url.QueryEscape(city))

	payload, err := a.fetcher.Fetch(ctx, endpoint, driven.FetchOptions{})
	if err != nil {
		return nil, fmt.Errorf("regional %s: %w", a.cfg.Name, err)
	}

	var collection struct {
		Features []feature `json:"features"`
	}
	if err := json.Unmarshal(payload, &collection); err != nil {
		return nil, fmt.Errorf("%w: regional %s: parse payload: %w", domain.ErrSourceUnavailable, a.cfg.Name, err)
	}

	records := make([]domain.RawRecord, 0, len(collection.Features))
	for _, f := range collection.Features {
		record, ok := parseFeature(f)
		if !ok {
			logger.Debug("Regional %s: skipped feature with %q geometry", a.cfg.Name, f.Geometry.Type)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// parseFeature maps one GeoJSON feature to a raw record.
// GeoJSON coordinates are [longitude, latitude].
func parseFeature(f feature) (domain.RawRecord, bool) {
	if !strings.EqualFold(f.Geometry.Type, "Point") || len(f.Geometry.Coordinates) < 2 {
		return domain.RawRecord{}, false
	}

	props := f.Properties
	if props == nil {
		props = map[string]any{}
	}

	return domain.RawRecord{
		Name:       probe.Optional(props, "name", "title"),
		Latitude:   f.Geometry.Coordinates[1],
		Longitude:  f.Geometry.Coordinates[0],
		Access:     probe.String(props, "access"),
		Gender:     probe.String(props, "gender"),
		Wheelchair: probe.String(props, "wheelchair", "accessible"),
		Operator:   probe.Optional(props, "operator", "provider"),
	}, true
}
