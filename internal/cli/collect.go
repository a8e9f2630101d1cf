package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lexharvest/internal/catalog"
	"github.com/ppiankov/lexharvest/internal/pipeline"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "List statute references from the portal catalog as JSON",
	Long: `Collect runs only the catalog discovery step and prints the deduplicated
document references to stdout. The output can be trimmed and fed back
with 'lexharvest ingest --refs'.

Example:
  lexharvest collect > refs.json
  lexharvest collect --year-from 2018`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

var collectYearFrom int

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().IntVar(&collectYearFrom, "year-from", 0, "first year queried (default from config)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if collectYearFrom > 0 {
		cfg.Catalog.StartYear = collectYearFrom
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := pipeline.NewFetcher(cfg.HTTP, nil, logger)
	refs, err := catalog.NewCollector(fetcher, cfg.Catalog, logger).Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect catalog: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(refs); err != nil {
		return fmt.Errorf("encode references: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ %d document references\n", len(refs))
	return nil
}
