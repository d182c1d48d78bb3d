// Package government pulls facility records from municipal and national
// open-data portals. Portals publish flat JSON with wildly inconsistent
// field naming, so every field goes through the probe helper.
package government

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/providers/probe"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Adapter fetches facility records from an open-data portal.
type Adapter struct {
	cfg     domain.SourceConfig
	fetcher driven.Fetcher
}

// New creates a government portal adapter for the configured source.
func New(cfg domain.SourceConfig, fetcher driven.Fetcher) *Adapter {
	return &Adapter{cfg: cfg, fetcher: fetcher}
}

// Name returns the configured source name.
func (a *Adapter) Name() string { return a.cfg.Name }

// Source returns the provenance stamp for records from this adapter.
func (a *Adapter) Source() domain.Source { return a.cfg.Source }

// Fetch queries the portal for the configured city. Portals issuing static
// bearer tokens get an Authorization header; the endpoint template supports
// a {{city}} placeholder.
func (a *Adapter) Fetch(ctx context.Context, _ domain.Bounds, city string) ([]domain.RawRecord, error) {
	endpoint := strings.ReplaceAll(a.cfg.Endpoint, "{{city}}", url.QueryEscape(city))

	opts := driven.FetchOptions{}
	if a.cfg.APIToken != "" {
		opts.Header = http.Header{"Authorization": []string{"Bearer " + a.cfg.APIToken}}
	}

	payload, err := a.fetcher.Fetch(ctx, endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("government %s: %w", a.cfg.Name, err)
	}

	elements, err := decodeElements(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: government %s: %w", domain.ErrSourceUnavailable, a.cfg.Name, err)
	}

	records := make([]domain.RawRecord, 0, len(elements))
	for _, element := range elements {
		records = append(records, parseElement(element))
	}
	return records, nil
}

// decodeElements accepts both a bare JSON array and the common envelope
// shapes ({"records": [...]}, {"data": [...]}, {"results": [...]}).
func decodeElements(payload []byte) ([]map[string]any, error) {
	var bare []map[string]any
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare, nil
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	raw, ok := probe.Pick(envelope, "records", "data", "results", "items")
	if !ok {
		return nil, fmt.Errorf("parse payload: no record list found")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parse payload: record list is %T", raw)
	}

	elements := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if element, ok := item.(map[string]any); ok {
			elements = append(elements, element)
		}
		// Non-object entries are malformed; skip, never abort the batch.
	}
	return elements, nil
}

func parseElement(element map[string]any) domain.RawRecord {
	lat, _ := probe.Pick(element, "latitude", "lat", "y", "gis_latitude")
	lon, _ := probe.Pick(element, "longitude", "lon", "lng", "x", "gis_longitude")

	return domain.RawRecord{
		Name:       probe.Optional(element, "name", "facility_name", "site_name", "title"),
		Latitude:   lat,
		Longitude:  lon,
		Access:     probe.String(element, "access", "access_type", "public_access"),
		Gender:     probe.String(element, "gender", "gender_access"),
		Wheelchair: probe.String(element, "wheelchair", "wheelchair_accessible", "ada_accessible"),
		Operator:   probe.Optional(element, "operator", "agency", "department", "managed_by"),
		Verified:   probe.String(element, "verified") == "yes",
	}
}
