// Package file provides the TOML-backed source registry.
package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.SourceRegistry = (*Registry)(nil)

// Registry is a file-based implementation of driven.SourceRegistry.
// Sources are declared as [[sources]] tables in a TOML file.
type Registry struct {
	mu       sync.RWMutex
	filePath string
	sources  []domain.SourceConfig
}

// registryFile is the on-disk shape of the registry.
type registryFile struct {
	Sources []domain.SourceConfig `toml:"sources"`
}

// NewRegistry creates a registry from the given TOML file.
func NewRegistry(filePath string) (*Registry, error) {
	r := &Registry{filePath: filePath}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load re-reads the registry file.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}

	var parsed registryFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing registry: %w", err)
	}

	for i, cfg := range parsed.Sources {
		if cfg.Name == "" {
			return fmt.Errorf("%w: source %d has no name", domain.ErrInvalidInput, i)
		}
		if cfg.Type == "" {
			return fmt.Errorf("%w: source %q has no type", domain.ErrInvalidInput, cfg.Name)
		}
	}

	sort.SliceStable(parsed.Sources, func(i, j int) bool {
		return parsed.Sources[i].Priority < parsed.Sources[j].Priority
	})

	r.mu.Lock()
	r.sources = parsed.Sources
	r.mu.Unlock()
	return nil
}

// List returns all configured sources ordered by priority rank.
func (r *Registry) List(_ context.Context) ([]domain.SourceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]domain.SourceConfig, len(r.sources))
	copy(sources, r.sources)
	return sources, nil
}

// Watch reloads the registry when the file changes, until the context is
// cancelled. Long-running schedulers pick up registry edits without a
// restart. A failed reload keeps the previous source set.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.filePath); err != nil {
		return fmt.Errorf("watching registry: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.Load(); err != nil {
				logger.Warn("Registry reload failed, keeping previous sources: %v", err)
				continue
			}
			logger.Info("Registry reloaded from %s", r.filePath)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Registry watcher error: %v", err)
		}
	}
}
