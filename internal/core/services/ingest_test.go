package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/logger"
	"github.com/openamenity/amenity-ingest/internal/normalise"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type stubRegistry struct {
	sources []domain.SourceConfig
	err     error
}

func (r *stubRegistry) List(context.Context) ([]domain.SourceConfig, error) {
	return r.sources, r.err
}

type stubAdapter struct {
	name   string
	source domain.Source
	raws   []domain.RawRecord
	err    error
}

func (a *stubAdapter) Name() string          { return a.name }
func (a *stubAdapter) Source() domain.Source { return a.source }

func (a *stubAdapter) Fetch(context.Context, domain.Bounds, string) ([]domain.RawRecord, error) {
	return a.raws, a.err
}

// stubFactory resolves adapters by source name.
type stubFactory struct {
	adapters map[string]driven.SourceAdapter
}

func (f *stubFactory) Create(cfg domain.SourceConfig) (driven.SourceAdapter, error) {
	adapter, ok := f.adapters[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, cfg.Type)
	}
	return adapter, nil
}

// fakeInventory is an in-memory InventoryStore with injectable failures.
type fakeInventory struct {
	mu         sync.Mutex
	records    map[string]domain.Record
	order      []string
	findAllErr error
	saveErr    error
	saves      int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{records: make(map[string]domain.Record)}
}

func (s *fakeInventory) FindAll(context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findAllErr != nil {
		return nil, s.findAllErr
	}
	out := make([]domain.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

func (s *fakeInventory) FindByID(_ context.Context, id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (s *fakeInventory) Save(_ context.Context, record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.records[record.ID]; !ok {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = *record
	s.saves++
	return nil
}

var _ driven.SourceRegistry = (*stubRegistry)(nil)
var _ driven.AdapterFactory = (*stubFactory)(nil)
var _ driven.InventoryStore = (*fakeInventory)(nil)

var testBounds = domain.Bounds{South: 18.9, West: 72.8, North: 19.0, East: 72.9}

func sourceConfig(name string, source domain.Source, priority int) domain.SourceConfig {
	return domain.SourceConfig{
		Name:     name,
		Type:     "overpass",
		Source:   source,
		Trust:    domain.TrustMedium,
		Priority: priority,
	}
}

func rawAt(lat, lon float64) domain.RawRecord {
	return domain.RawRecord{Latitude: lat, Longitude: lon}
}

func newOrchestrator(registry driven.SourceRegistry, factory driven.AdapterFactory, inventory driven.InventoryStore) *IngestOrchestrator {
	return NewIngestOrchestrator(registry, factory, normalise.New(), inventory, NewDeduper(15))
}

func TestRunIngestion_PersistsUniqueRecords(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
		sourceConfig("gov", domain.SourceGovernment, 2),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
			rawAt(18.9800, 72.8300),
		}},
		"gov": &stubAdapter{name: "gov", source: domain.SourceGovernment, raws: []domain.RawRecord{
			rawAt(18.9900, 72.8400),
		}},
	}}
	inventory := newFakeInventory()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 3, stats.TotalAccepted)
	assert.Zero(t, stats.TotalRejected)
	assert.Zero(t, stats.DuplicatesRemoved)
	assert.Equal(t, 2, stats.PerSource["osm"])
	assert.Equal(t, 1, stats.PerSource["gov"])
	assert.Equal(t, 3, inventory.saves)
}

func TestRunIngestion_FailedSourceDoesNotAbortTheRun(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("down", domain.SourceRegional, 1),
		sourceConfig("up", domain.SourceOSM, 2),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"down": &stubAdapter{name: "down", source: domain.SourceRegional,
			err: fmt.Errorf("%w: connection refused", domain.ErrSourceUnavailable)},
		"up": &stubAdapter{name: "up", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
		}},
	}}
	inventory := newFakeInventory()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err, "a single unavailable source is not fatal")

	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 1, stats.TotalAccepted)
	assert.Zero(t, stats.PerSource["down"])
	assert.Equal(t, 1, inventory.saves)
}

func TestRunIngestion_UnknownSourceTypeIsSkipped(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("mystery", domain.SourceRegional, 1),
		sourceConfig("osm", domain.SourceOSM, 2),
	}}
	// The factory only knows "osm"; "mystery" fails adapter creation.
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
		}},
	}}
	inventory := newFakeInventory()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAccepted)
}

func TestRunIngestion_InvalidRecordsAreCountedNotFatal(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(95.0, 72.8200), // latitude out of range
			rawAt(18.9700, 72.8200),
		}},
	}}
	inventory := newFakeInventory()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.TotalRejected)
	assert.Equal(t, 1, stats.TotalAccepted)
}

func TestRunIngestion_RerunResolvesEverythingAsDuplicates(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
			rawAt(18.9800, 72.8300),
		}},
	}}
	inventory := newFakeInventory()
	orchestrator := newOrchestrator(registry, factory, inventory)

	first, err := orchestrator.RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)
	require.Equal(t, 2, first.TotalAccepted)

	second, err := orchestrator.RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)

	assert.Zero(t, second.TotalAccepted, "a rerun adds nothing new")
	assert.Equal(t, second.TotalProcessed, second.DuplicatesRemoved)
	assert.Len(t, inventory.order, 2, "inventory size is unchanged")
}

func TestRunIngestion_InventoryReadFailureIsFatal(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
		}},
	}}
	inventory := newFakeInventory()
	inventory.findAllErr = errors.New("database is locked")

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	require.NotNil(t, stats, "stats are returned even on failure")
	assert.Equal(t, 1, stats.TotalProcessed)
}

func TestRunIngestion_SaveFailuresAreCountedNotFatal(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
			rawAt(18.9800, 72.8300),
		}},
	}}
	inventory := newFakeInventory()
	inventory.saveErr = errors.New("disk full")

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.WriteFailures)
}

func TestRunIngestion_RegistryFailureReturnsEmptyStats(t *testing.T) {
	registry := &stubRegistry{err: errors.New("sources.toml is unreadable")}

	stats, err := newOrchestrator(registry, &stubFactory{}, newFakeInventory()).
		RunIngestion(context.Background(), testBounds, "mumbai")

	require.Error(t, err)
	require.NotNil(t, stats)
	assert.Zero(t, stats.TotalProcessed)
}

func TestRunIngestion_CancelledContextReturnsPartialStats(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
		}},
	}}
	inventory := newFakeInventory()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(ctx, testBounds, "mumbai")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)
	assert.Zero(t, inventory.saves, "nothing is persisted after cancellation")
}

func TestRunIngestion_ReportsLowConfidenceRecords(t *testing.T) {
	// Nameless medium-trust records score 0.45, below the default 0.6
	// threshold. They are persisted anyway and only counted.
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			rawAt(18.9700, 72.8200),
			rawAt(18.9800, 72.8300),
		}},
	}}

	t.Run("default threshold", func(t *testing.T) {
		inventory := newFakeInventory()
		stats, err := newOrchestrator(registry, factory, inventory).
			RunIngestion(context.Background(), testBounds, "mumbai")
		require.NoError(t, err)

		assert.Equal(t, 2, stats.LowConfidence)
		assert.Equal(t, 2, inventory.saves, "low scores never block persistence")
	})

	t.Run("lowered threshold", func(t *testing.T) {
		inventory := newFakeInventory()
		orchestrator := NewIngestOrchestrator(registry, factory, normalise.New(),
			inventory, NewDeduper(15), WithConfidenceThreshold(0.3))

		stats, err := orchestrator.RunIngestion(context.Background(), testBounds, "mumbai")
		require.NoError(t, err)
		assert.Zero(t, stats.LowConfidence)
	})
}

func TestRunIngestion_MergesAcrossSourcesByPriority(t *testing.T) {
	// Both sources report the same facility a few metres apart. The
	// government record outranks the OSM one and survives as primary.
	name := "Station West"
	registry := &stubRegistry{sources: []domain.SourceConfig{
		sourceConfig("osm", domain.SourceOSM, 1),
		{Name: "gov", Type: "government", Source: domain.SourceGovernment, Trust: domain.TrustHigh, Priority: 2},
	}}
	factory := &stubFactory{adapters: map[string]driven.SourceAdapter{
		"osm": &stubAdapter{name: "osm", source: domain.SourceOSM, raws: []domain.RawRecord{
			{Name: &name, Latitude: 18.97000, Longitude: 72.82000},
		}},
		"gov": &stubAdapter{name: "gov", source: domain.SourceGovernment, raws: []domain.RawRecord{
			rawAt(18.97003, 72.82002),
		}},
	}}
	inventory := newFakeInventory()

	stats, err := newOrchestrator(registry, factory, inventory).
		RunIngestion(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.TotalAccepted)
	assert.Equal(t, 1, stats.DuplicatesRemoved)

	require.Len(t, inventory.order, 1)
	survivor := inventory.records[inventory.order[0]]
	assert.Equal(t, domain.SourceGovernment, survivor.Source)
	require.NotNil(t, survivor.Name)
	assert.Equal(t, name, *survivor.Name, "name filled in from the lower-priority record")
}
