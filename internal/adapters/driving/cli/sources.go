package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configfile "github.com/openamenity/amenity-ingest/internal/adapters/driven/config/file"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured data sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources in fetch order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := configfile.NewRegistry(registryPath())
		if err != nil {
			return fmt.Errorf("load source registry: %w", err)
		}

		sources, err := registry.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(sources) == 0 {
			cmd.Println("No sources configured.")
			return nil
		}

		cmd.Printf("%-24s %-12s %-12s %-8s %s\n", "NAME", "TYPE", "SOURCE", "TRUST", "PRIORITY")
		for _, s := range sources {
			cmd.Printf("%-24s %-12s %-12s %-8s %d\n", s.Name, s.Type, s.Source, s.Trust, s.Priority)
		}
		return nil
	},
}

var sourcesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Validate the sources file continuously as it is edited",
	Long: `Reloads the sources file on every write and reports whether the new
revision parsed. An edit that fails validation keeps the previous source set,
so a running scheduler never picks up a broken registry.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := configfile.NewRegistry(registryPath())
		if err != nil {
			return fmt.Errorf("load source registry: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Watching %s (Ctrl-C to stop)\n", registryPath())
		if err := registry.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	sourcesCmd.PersistentFlags().StringVar(&ingestConfig, "config", "", "path to the sources TOML file (default ~/.amenity-ingest/sources.toml)")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesWatchCmd)
	rootCmd.AddCommand(sourcesCmd)
}
