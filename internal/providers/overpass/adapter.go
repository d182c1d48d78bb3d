// Package overpass pulls facility nodes from Overpass API endpoints.
// It serves both the main OpenStreetMap interpreter and planet-scale
// mirrors; the two differ only in endpoint and provenance stamp.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/logger"
	"github.com/openamenity/amenity-ingest/internal/providers/probe"
)

// DefaultQuery selects toilet nodes within the bounding box.
const DefaultQuery = `[out:json][timeout:25];node["amenity"="toilets"]({{bbox}});out body;`

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Adapter fetches facility nodes through the Overpass QL API.
type Adapter struct {
	cfg     domain.SourceConfig
	fetcher driven.Fetcher
}

// New creates an Overpass adapter for the configured source.
func New(cfg domain.SourceConfig, fetcher driven.Fetcher) *Adapter {
	return &Adapter{cfg: cfg, fetcher: fetcher}
}

// Name returns the configured source name.
func (a *Adapter) Name() string { return a.cfg.Name }

// Source returns the provenance stamp for records from this adapter.
func (a *Adapter) Source() domain.Source { return a.cfg.Source }

// Fetch queries the Overpass endpoint for the bounding box and parses the
// returned elements. A malformed element is skipped; an unusable response
// fails the whole source.
func (a *Adapter) Fetch(ctx context.Context, bounds domain.Bounds, _ string) ([]domain.RawRecord, error) {
	query := a.cfg.Query
	if query == "" {
		query = DefaultQuery
	}
	bbox := fmt.Sprintf("%f,%f,%f,%f", bounds.South, bounds.West, bounds.North, bounds.East)
	query = strings.ReplaceAll(query, "{{bbox}}", bbox)

	payload, err := a.fetcher.Fetch(ctx, a.cfg.Endpoint, driven.FetchOptions{
		Method: http.MethodPost,
		Body:   "data=" + url.QueryEscape(query),
		Header: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
	})
	if err != nil {
		return nil, fmt.Errorf("overpass %s: %w", a.cfg.Name, err)
	}

	var response struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("%w: overpass %s: parse payload: %w", domain.ErrSourceUnavailable, a.cfg.Name, err)
	}

	records := make([]domain.RawRecord, 0, len(response.Elements))
	for _, element := range response.Elements {
		records = append(records, a.parseElement(element))
	}
	return records, nil
}

// parseElement maps one Overpass element to a raw record. Coordinates stay
// loosely typed; the normaliser owns validation.
func (a *Adapter) parseElement(element map[string]any) domain.RawRecord {
	lat, _ := probe.Pick(element, "lat", "latitude", "y")
	lon, _ := probe.Pick(element, "lon", "lng", "longitude", "x")

	tags := tagsOf(element)

	return domain.RawRecord{
		Name:       probe.Optional(tags, "name", "name:en"),
		Latitude:   lat,
		Longitude:  lon,
		Access:     probe.String(tags, "access", "toilets:access"),
		Gender:     genderFromTags(tags),
		Wheelchair: probe.String(tags, "wheelchair"),
		Operator:   probe.Optional(tags, "operator"),
	}
}

func tagsOf(element map[string]any) map[string]any {
	raw, ok := probe.Pick(element, "tags", "properties")
	if !ok {
		return map[string]any{}
	}
	tags, ok := raw.(map[string]any)
	if !ok {
		logger.Debug("Overpass element with non-object tags skipped")
		return map[string]any{}
	}
	return tags
}

// genderFromTags derives a gender token from OSM tagging, where male/female/
// unisex are separate yes/no tags rather than a single field.
func genderFromTags(tags map[string]any) string {
	if gender := probe.String(tags, "gender"); gender != "" {
		return gender
	}

	male := probe.String(tags, "male") == "yes"
	female := probe.String(tags, "female") == "yes"
	unisex := probe.String(tags, "unisex") == "yes"

	switch {
	case unisex || (male && female):
		return "unisex"
	case male:
		return "male"
	case female:
		return "female"
	default:
		return ""
	}
}
