// Package memory provides in-memory store implementations, used by tests
// and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
)

// Ensure InventoryStore implements the interface.
var _ driven.InventoryStore = (*InventoryStore)(nil)

// InventoryStore is an in-memory implementation of driven.InventoryStore.
type InventoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	order   []string
}

// NewInventoryStore creates an empty in-memory inventory.
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{records: make(map[string]domain.Record)}
}

// FindAll returns the inventory in insertion order, so deduplication
// evaluation order stays deterministic across calls.
func (s *InventoryStore) FindAll(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.Record, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.records[id])
	}
	return records, nil
}

// FindByID retrieves a record by ID.
func (s *InventoryStore) FindByID(_ context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// Save stores or updates a record.
func (s *InventoryStore) Save(_ context.Context, record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = *record
	return nil
}

// Len returns the number of stored records.
func (s *InventoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IDs returns the stored record IDs sorted lexicographically.
func (s *InventoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
