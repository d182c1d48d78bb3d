package services

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/geo"
	"github.com/openamenity/amenity-ingest/internal/logger"
)

// DefaultRadiusMetres is the deduplication radius: two records closer than
// this are considered the same physical facility.
const DefaultRadiusMetres = 15.0

// Deduper resolves near-duplicate records by haversine proximity and
// source priority.
type Deduper struct {
	radius float64
}

// NewDeduper creates a Deduper with the given radius in metres.
// A non-positive radius falls back to DefaultRadiusMetres.
func NewDeduper(radiusMetres float64) *Deduper {
	if radiusMetres <= 0 {
		radiusMetres = DefaultRadiusMetres
	}
	return &Deduper{radius: radiusMetres}
}

// DedupeResult is the outcome of one deduplication pass.
type DedupeResult struct {
	// Records are the surviving records in candidate order: new uniques
	// plus merged records. Merged survivors keep the ID of the record
	// they superseded, so an upsert replaces it.
	Records []domain.Record

	// Accepted counts candidates that matched nothing and were kept as
	// new unique records.
	Accepted int

	// Merged counts candidates merged with a nearby record.
	Merged int

	// Rejected counts candidates dropped as lower-priority duplicates.
	Rejected int
}

// DuplicatesRemoved returns the number of candidates resolved as duplicates.
// A merge and a rejection each collapse two records into one.
func (r *DedupeResult) DuplicatesRemoved() int {
	return r.Merged + r.Rejected
}

// entry is a survivor plus bookkeeping for within-batch matching.
type entry struct {
	record domain.Record
	isNew  bool
}

// Dedupe evaluates candidates in input order against the existing inventory
// and the already-accepted part of the batch. The first record within the
// radius decides the outcome; this is a first-applicable-match policy, not a
// global-optimum search, so evaluation order must stay deterministic.
//
// On cancellation the result built so far is returned with the context error.
func (d *Deduper) Dedupe(ctx context.Context, batch, existing []domain.Record) (*DedupeResult, error) {
	result := &DedupeResult{}

	// Superseded inventory records drop out of the pool so later
	// candidates compare against the merged survivor instead.
	pool := make([]domain.Record, len(existing))
	copy(pool, existing)

	var accepted []entry

	for _, candidate := range batch {
		if err := ctx.Err(); err != nil {
			result.Records = survivors(accepted)
			return result, err
		}

		if idx, ok := d.nearest(candidate, pool); ok {
			matched := pool[idx]
			if candidate.Source.Priority() >= matched.Source.Priority() {
				merged := Merge(candidate, matched)
				merged.ID = matched.ID
				pool = append(pool[:idx], pool[idx+1:]...)
				accepted = append(accepted, entry{record: merged})
				result.Merged++
				logger.Debug("Merged %s candidate into existing record %s", candidate.Source, matched.ID)
			} else {
				result.Rejected++
				logger.Debug("Rejected %s candidate as duplicate of %s record %s",
					candidate.Source, matched.Source, matched.ID)
			}
			continue
		}

		if idx, ok := d.nearestEntry(candidate, accepted); ok {
			matched := accepted[idx].record
			if candidate.Source.Priority() >= matched.Source.Priority() {
				merged := Merge(candidate, matched)
				merged.ID = matched.ID
				accepted[idx].record = merged
				result.Merged++
			} else {
				result.Rejected++
			}
			continue
		}

		accepted = append(accepted, entry{record: candidate, isNew: true})
		result.Accepted++
	}

	result.Records = survivors(accepted)
	return result, nil
}

// nearest returns the index of the first record within the radius.
func (d *Deduper) nearest(candidate domain.Record, records []domain.Record) (int, bool) {
	for i := range records {
		dist := geo.Distance(candidate.Latitude, candidate.Longitude,
			records[i].Latitude, records[i].Longitude)
		if dist <= d.radius {
			return i, true
		}
	}
	return 0, false
}

func (d *Deduper) nearestEntry(candidate domain.Record, entries []entry) (int, bool) {
	for i := range entries {
		dist := geo.Distance(candidate.Latitude, candidate.Longitude,
			entries[i].record.Latitude, entries[i].record.Longitude)
		if dist <= d.radius {
			return i, true
		}
	}
	return 0, false
}

func survivors(entries []entry) []domain.Record {
	records := make([]domain.Record, len(entries))
	for i := range entries {
		records[i] = entries[i].record
	}
	return records
}

// Merge combines two records into a new value with primary taking
// precedence. Missing name and operator are copied from secondary, the
// confidence is raised to the larger of the two, and verification carries
// over from either input. Neither input is mutated.
func Merge(primary, secondary domain.Record) domain.Record {
	merged := primary
	if merged.Name == nil {
		merged.Name = secondary.Name
	}
	if merged.Operator == nil {
		merged.Operator = secondary.Operator
	}
	if secondary.Confidence > merged.Confidence {
		merged.Confidence = secondary.Confidence
	}
	merged.Verified = primary.Verified || secondary.Verified
	return merged
}
