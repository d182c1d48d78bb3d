package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	configfile "github.com/openamenity/amenity-ingest/internal/adapters/driven/config/file"
	"github.com/openamenity/amenity-ingest/internal/adapters/driven/storage/memory"
	"github.com/openamenity/amenity-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/core/services"
	"github.com/openamenity/amenity-ingest/internal/fetch"
	"github.com/openamenity/amenity-ingest/internal/normalise"
	"github.com/openamenity/amenity-ingest/internal/providers"
)

var (
	ingestBBox       string
	ingestCity       string
	ingestConfidence float64
	ingestConfig     string
	ingestDataDir    string
	ingestDryRun     bool
	ingestRadius     float64
	ingestRetries    int
	ingestTimeout    time.Duration
	ingestToken      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over a bounding box",
	Long: `Pulls candidate records from every configured source, deduplicates them
against the current inventory and persists the survivors. Partial source
failures are expected and reported in the stats, not fatal.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestBBox, "bbox", "", "bounding box as south,west,north,east in decimal degrees (required)")
	ingestCmd.Flags().StringVar(&ingestCity, "city", "", "city identifier used by source query templates (required)")
	ingestCmd.Flags().StringVar(&ingestConfig, "config", "", "path to the sources TOML file (default ~/.amenity-ingest/sources.toml)")
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "inventory database directory (default ~/.amenity-ingest/data)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "run against an empty in-memory inventory, persist nothing")
	ingestCmd.Flags().Float64Var(&ingestConfidence, "confidence-threshold", services.DefaultConfidenceThreshold, "score below which persisted records are reported as low-confidence")
	ingestCmd.Flags().Float64Var(&ingestRadius, "radius", services.DefaultRadiusMetres, "deduplication radius in metres")
	ingestCmd.Flags().IntVar(&ingestRetries, "retries", fetch.DefaultMaxRetries, "fetch attempts per request")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", fetch.DefaultTimeout, "per-attempt fetch timeout")
	ingestCmd.Flags().StringVar(&ingestToken, "token", "", "bearer token attached to every outbound request")
	_ = ingestCmd.MarkFlagRequired("bbox")
	_ = ingestCmd.MarkFlagRequired("city")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	bounds, err := parseBounds(ingestBBox)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := configfile.NewRegistry(registryPath())
	if err != nil {
		return fmt.Errorf("load source registry: %w", err)
	}

	var inventory driven.InventoryStore
	if ingestDryRun {
		inventory = memory.NewInventoryStore()
	} else {
		store, err := sqlite.NewStore(ingestDataDir)
		if err != nil {
			return fmt.Errorf("open inventory: %w", err)
		}
		defer store.Close()
		inventory = store.InventoryStore()
	}

	httpClient := &http.Client{}
	if ingestToken != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: ingestToken},
		))
	}

	fetcher := fetch.New(
		fetch.WithClient(httpClient),
		fetch.WithTimeout(ingestTimeout),
		fetch.WithMaxRetries(ingestRetries),
	)

	orchestrator := services.NewIngestOrchestrator(
		registry,
		providers.NewFactory(fetcher),
		normalise.New(),
		inventory,
		services.NewDeduper(ingestRadius),
		services.WithConfidenceThreshold(ingestConfidence),
	)

	stats, err := orchestrator.RunIngestion(ctx, bounds, ingestCity)
	printStats(cmd, stats)
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}
	return nil
}

// parseBounds parses "south,west,north,east" in decimal degrees.
func parseBounds(s string) (domain.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Bounds{}, fmt.Errorf("bbox must be south,west,north,east, got %q", s)
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("bbox component %q is not a number", part)
		}
		values[i] = v
	}

	bounds := domain.Bounds{South: values[0], West: values[1], North: values[2], East: values[3]}
	if bounds.South < -90 || bounds.North > 90 || bounds.West < -180 || bounds.East > 180 {
		return domain.Bounds{}, fmt.Errorf("bbox %q is outside valid Earth coordinates", s)
	}
	if bounds.South >= bounds.North || bounds.West >= bounds.East {
		return domain.Bounds{}, fmt.Errorf("bbox %q is empty: south must be below north, west below east", s)
	}
	return bounds, nil
}

func registryPath() string {
	if ingestConfig != "" {
		return ingestConfig
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sources.toml"
	}
	return filepath.Join(home, ".amenity-ingest", "sources.toml")
}

func printStats(cmd *cobra.Command, stats *domain.IngestionStats) {
	cmd.Printf("Processed:          %d\n", stats.TotalProcessed)
	cmd.Printf("Accepted:           %d\n", stats.TotalAccepted)
	cmd.Printf("Rejected:           %d\n", stats.TotalRejected)
	cmd.Printf("Duplicates removed: %d\n", stats.DuplicatesRemoved)
	if stats.LowConfidence > 0 {
		cmd.Printf("Low confidence:     %d\n", stats.LowConfidence)
	}
	if stats.WriteFailures > 0 {
		cmd.Printf("Write failures:     %d\n", stats.WriteFailures)
	}

	names := make([]string, 0, len(stats.PerSource))
	for name := range stats.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %-24s %d\n", name, stats.PerSource[name])
	}
}
