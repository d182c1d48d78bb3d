package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driving"
	"github.com/openamenity/amenity-ingest/internal/logger"
)

// DefaultConfidenceThreshold marks the score below which a persisted record
// is reported as low-confidence. Downstream display layers filter on it;
// ingestion never drops a record for scoring low.
const DefaultConfidenceThreshold = 0.6

// Ensure IngestOrchestrator implements the interface.
var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// IngestOrchestrator drives one ingestion run: fetch all sources, normalise,
// deduplicate once over the full batch, persist the survivors.
type IngestOrchestrator struct {
	registry   driven.SourceRegistry
	factory    driven.AdapterFactory
	normaliser driven.Normaliser
	inventory  driven.InventoryStore
	deduper    *Deduper

	confidenceThreshold float64

	// writeMu serialises the dedupe-and-persist step across concurrent
	// runs against the same inventory. Without it two runs could each
	// accept near-duplicates a single run would have merged.
	writeMu sync.Mutex
}

// OrchestratorOption customises an IngestOrchestrator.
type OrchestratorOption func(*IngestOrchestrator)

// WithConfidenceThreshold sets the score below which persisted records are
// reported as low-confidence. Non-positive values fall back to the default.
func WithConfidenceThreshold(threshold float64) OrchestratorOption {
	return func(o *IngestOrchestrator) {
		if threshold > 0 {
			o.confidenceThreshold = threshold
		}
	}
}

// NewIngestOrchestrator creates an orchestrator over the given collaborators.
func NewIngestOrchestrator(
	registry driven.SourceRegistry,
	factory driven.AdapterFactory,
	normaliser driven.Normaliser,
	inventory driven.InventoryStore,
	deduper *Deduper,
	opts ...OrchestratorOption,
) *IngestOrchestrator {
	o := &IngestOrchestrator{
		registry:            registry,
		factory:             factory,
		normaliser:          normaliser,
		inventory:           inventory,
		deduper:             deduper,
		confidenceThreshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// sourceResult is the outcome of fetching and normalising one source.
type sourceResult struct {
	records   []domain.Record
	processed int
	rejected  int
}

// RunIngestion executes the pipeline for a bounding box and city.
//
// Per-record and per-source failures are recovered locally: a failed source
// is logged and skipped, a rejected record is counted. Stats are always
// returned, even when every source fails. Only a systemic inventory outage
// fails the run; cancellation returns partial stats with the context error.
func (o *IngestOrchestrator) RunIngestion(ctx context.Context, bounds domain.Bounds, city string) (*domain.IngestionStats, error) {
	stats := domain.NewIngestionStats()

	sources, err := o.registry.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list sources: %w", err)
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})

	logger.Info("Starting ingestion for %q over %d sources", city, len(sources))

	// Sources are fetched concurrently for I/O efficiency. Results are
	// appended in configured source order below, so the dedupe input
	// order stays deterministic regardless of fetch completion order.
	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.fetchSource(ctx, sources[i], bounds, city)
		}(i)
	}
	wg.Wait()

	var batch []domain.Record
	for i, cfg := range sources {
		stats.CountSource(cfg.Name, results[i].processed)
		stats.TotalRejected += results[i].rejected
		batch = append(batch, results[i].records...)
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	existing, err := o.inventory.FindAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: read inventory: %w", domain.ErrPersistence, err)
	}

	result, dedupeErr := o.deduper.Dedupe(ctx, batch, existing)
	stats.TotalAccepted = result.Accepted
	stats.DuplicatesRemoved = result.DuplicatesRemoved()
	if dedupeErr != nil {
		return stats, dedupeErr
	}

	for i := range result.Records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if result.Records[i].Confidence < o.confidenceThreshold {
			stats.LowConfidence++
			logger.Debug("Record %s scored %.2f, below threshold %.2f",
				result.Records[i].ID, result.Records[i].Confidence, o.confidenceThreshold)
		}
		if err := o.inventory.Save(ctx, &result.Records[i]); err != nil {
			stats.WriteFailures++
			logger.Error("Failed to save record %s: %v", result.Records[i].ID, err)
		}
	}

	logger.Info("Ingestion complete: %d processed, %d accepted, %d rejected, %d duplicates removed",
		stats.TotalProcessed, stats.TotalAccepted, stats.TotalRejected, stats.DuplicatesRemoved)
	return stats, nil
}

// fetchSource pulls and normalises one source. Failures are contained here:
// an unusable source yields an empty result and the run continues.
func (o *IngestOrchestrator) fetchSource(ctx context.Context, cfg domain.SourceConfig, bounds domain.Bounds, city string) sourceResult {
	adapter, err := o.factory.Create(cfg)
	if err != nil {
		logger.Warn("Skipping source %s: %v", cfg.Name, err)
		return sourceResult{}
	}

	raws, err := adapter.Fetch(ctx, bounds, city)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			logger.Warn("Source %s unavailable: %v", cfg.Name, err)
		} else {
			logger.Warn("Source %s failed: %v", cfg.Name, err)
		}
		return sourceResult{}
	}

	result := sourceResult{processed: len(raws)}
	for _, raw := range raws {
		record, err := o.normaliser.Normalise(raw, cfg)
		if err != nil {
			result.rejected++
			logger.Debug("Dropped record from %s: %v", cfg.Name, err)
			continue
		}
		result.records = append(result.records, *record)
	}

	logger.Info("Source %s: %d fetched, %d valid", cfg.Name, result.processed, len(result.records))
	return result
}
