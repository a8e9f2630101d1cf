package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/lexharvest/internal/catalog"
	"github.com/ppiankov/lexharvest/internal/model"
	"github.com/ppiankov/lexharvest/internal/pipeline"
	"github.com/ppiankov/lexharvest/internal/store"
	"github.com/ppiankov/lexharvest/internal/worker"
)

var (
	limit      int
	resumeFrom int
	refsFile   string
	noCache    bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Discover, fetch and parse statutes into JSON records",
	Long: `Ingest runs the full pipeline:
- Query the portal search API for statute references
- Fetch each document page (and PDF) through one rate-limited queue
- Parse article-level provisions and mine definitions
- Write <out>/<id>.json per act plus ingest-report.json and ingest-report.md

Documents are processed in catalog order. A failed document is recorded and
the run continues; the command exits nonzero if any document hard-failed.

Example:
  lexharvest ingest --limit 20
  lexharvest ingest --resume-from 150 --out ./data/seed --db ./data/laws.db
  lexharvest ingest --refs hrefs.txt --no-cache`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVar(&limit, "limit", 0, "process at most N documents (0 = all)")
	ingestCmd.Flags().IntVar(&resumeFrom, "resume-from", 0, "skip documents before catalog index N (1-based)")
	ingestCmd.Flags().StringVar(&refsFile, "refs", "", "read document hrefs from a file instead of the catalog")
	ingestCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	ingestCmd.Flags().String("out", "", "output directory for act records and reports")
	ingestCmd.Flags().String("db", "", "also write acts to this SQLite database")
	ingestCmd.Flags().Int("year-from", 0, "first year queried in the catalog")

	_ = viper.BindPFlag("output.dir", ingestCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("output.db_path", ingestCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("catalog.start_year", ingestCmd.Flags().Lookup("year-from"))
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  lexharvest ingest\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Portal:       %s\n", cfg.Catalog.BaseURL)
	fmt.Fprintf(os.Stderr, "  Interval:     %v\n", cfg.HTTP.MinInterval)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	if cfg.Output.DBPath != "" {
		fmt.Fprintf(os.Stderr, "  Database:     %s\n", cfg.Output.DBPath)
	}
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	var st *store.Store
	var sink pipeline.Sink
	if cfg.Output.DBPath != "" {
		st, err = store.Open(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = st.Close() }()
		sink = st
	}
	renderer := pipeline.NewRenderer(cfg.Output.Dir, sink, logger)

	report := model.NewRunReport(uuid.NewString(), time.Now().UTC())
	processor := worker.NewBatchProcessor(p, renderer, logger).
		WithLimit(limit).
		WithResumeFrom(resumeFrom)

	var procErr error
	if refsFile != "" {
		fmt.Fprintf(os.Stderr, "✓ Reading references from %s\n\n", refsFile)
		procErr = processor.ProcessFile(ctx, refsFile, report)
	} else {
		refs, err := collectRefs(ctx, p, cfg, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %d document references\n\n", len(refs))
		procErr = processor.Process(ctx, refs, report)
	}
	report.FinishedAt = time.Now().UTC()

	// the report is written even for an interrupted run
	if err := renderer.WriteReport(context.Background(), report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if procErr != nil {
		return fmt.Errorf("ingest stopped after %d documents: %w", report.Total(), procErr)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Ingest Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:    %d\n", report.Total())
	fmt.Fprintf(os.Stderr, "  Success:      %d\n", report.Success)
	fmt.Fprintf(os.Stderr, "  Skipped:      %d\n", report.Skipped)
	fmt.Fprintf(os.Stderr, "  Failed:       %d\n", report.Failed)
	fmt.Fprintf(os.Stderr, "  Provisions:   %d\n", report.TotalProvisions)
	fmt.Fprintf(os.Stderr, "  Definitions:  %d\n", report.TotalDefinitions)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", cfg.Output.Dir)
	if st != nil {
		printStoreSummary(context.Background(), st)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if n := report.HardFailures(); n > 0 {
		return fmt.Errorf("%d document(s) failed; see %s/ingest-report.md", n, cfg.Output.Dir)
	}
	return nil
}

// collectRefs gathers references from the catalog through the pipeline's
// own fetch queue
func collectRefs(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config, logger *slog.Logger) ([]model.DocumentReference, error) {
	fmt.Fprintf(os.Stderr, "⚙️  Collecting catalog...\n")
	refs, err := catalog.NewCollector(p.Fetcher(), cfg.Catalog, logger).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect catalog: %w", err)
	}
	return refs, nil
}

// printStoreSummary reports what the database holds after the run
func printStoreSummary(ctx context.Context, st *store.Store) {
	counts, err := st.Counts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Database:     %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "  Database:     %d documents, %d provisions, %d definitions\n",
		counts.Documents, counts.Provisions, counts.Definitions)

	if builtAt, err := st.BuiltAt(ctx); err == nil && !builtAt.IsZero() {
		fmt.Fprintf(os.Stderr, "  Built at:     %s\n", builtAt.Format(time.RFC3339))
	}
}
