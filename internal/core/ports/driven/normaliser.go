package driven

import (
	"github.com/openamenity/amenity-ingest/internal/core/domain"
)

// Normaliser converts raw provider records into canonical records.
type Normaliser interface {
	// Normalise validates and converts one raw record.
	// Invalid records return an error wrapping domain.ErrInvalidRecord;
	// the record is dropped and counted, never propagated as fatal.
	Normalise(raw domain.RawRecord, cfg domain.SourceConfig) (*domain.Record, error)
}
