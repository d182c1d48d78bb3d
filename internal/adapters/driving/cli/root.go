// Package cli provides the command-line surface for triggering ingestion
// runs. The engine itself is a library; this is the admin-facing caller.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openamenity/amenity-ingest/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "amenity-ingest",
	Short: "Multi-source facility ingestion and deduplication engine",
	Long: `amenity-ingest pulls candidate facility records from configured external
providers, normalises them into one canonical schema, deduplicates them by
geospatial proximity and source priority, and persists the survivors.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
