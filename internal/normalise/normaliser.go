// Package normalise converts raw provider records into canonical facility
// records, validating coordinates and scoring confidence.
package normalise

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
)

// coordinatePrecision rounds coordinates to 6 decimal places (~0.11 m),
// stabilising downstream distance comparisons.
const coordinatePrecision = 1e6

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser validates raw records and produces canonical records.
type Normaliser struct{}

// New creates a new Normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise converts a raw record into a canonical record.
// Invalid records return an error wrapping domain.ErrInvalidRecord; malformed
// upstream data is expected and never panics or aborts a batch.
func (n *Normaliser) Normalise(raw domain.RawRecord, cfg domain.SourceConfig) (*domain.Record, error) {
	lat, err := coordinate(raw.Latitude)
	if err != nil {
		return nil, fmt.Errorf("%w: latitude: %w", domain.ErrInvalidRecord, err)
	}
	lon, err := coordinate(raw.Longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: longitude: %w", domain.ErrInvalidRecord, err)
	}

	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidRecord, lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidRecord, lon)
	}

	record := &domain.Record{
		ID:         uuid.New().String(),
		Name:       optional(raw.Name),
		Latitude:   round(lat),
		Longitude:  round(lon),
		Source:     cfg.Source,
		Access:     domain.ParseAccess(raw.Access),
		Gender:     domain.ParseGender(raw.Gender),
		Wheelchair: domain.ParseWheelchair(raw.Wheelchair),
		Operator:   optional(raw.Operator),
		Verified:   raw.Verified,
		UpdatedAt:  time.Now().UTC(),
	}
	record.Confidence = confidence(record, cfg.Trust)

	return record, nil
}

// confidence scores a record from the source trust level plus completeness
// boosts and penalties, clamped to [0,1].
func confidence(r *domain.Record, trust domain.TrustLevel) float64 {
	score := trust.BaseConfidence()

	if r.Wheelchair == domain.WheelchairYes {
		score += 0.1
	}
	if r.Operator != nil {
		score += 0.1
	}
	if r.Name != nil {
		score += 0.05
	} else {
		score -= 0.1
	}
	if r.Access == domain.AccessUnknown {
		score -= 0.05
	}

	return math.Min(1, math.Max(0, score))
}

// coordinate coerces a loosely typed provider value into a finite float64.
// NaN and infinities are rejected here: they slip through plain range
// comparisons and would poison every distance calculation downstream.
func coordinate(value any) (float64, error) {
	f, err := coerceFloat(value)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("missing")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric type %T", value)
	}
}

// optional trims a provider string, mapping absent or blank values to nil.
// Missing optionals are nil, never the empty string.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func round(v float64) float64 {
	return math.Round(v*coordinatePrecision) / coordinatePrecision
}
