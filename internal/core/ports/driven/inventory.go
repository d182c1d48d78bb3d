package driven

import (
	"context"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
)

// InventoryStore is the persistence gateway for canonical facility records.
type InventoryStore interface {
	// FindAll returns the current inventory.
	FindAll(ctx context.Context) ([]domain.Record, error)

	// FindByID retrieves a record by ID.
	// Returns domain.ErrNotFound when the record does not exist.
	FindByID(ctx context.Context, id string) (*domain.Record, error)

	// Save stores or updates a record. Saving an existing ID replaces the
	// stored record, which is how merged records supersede their match.
	Save(ctx context.Context, record *domain.Record) error
}
