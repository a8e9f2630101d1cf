package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lexharvest/internal/cache"
	"github.com/ppiankov/lexharvest/internal/pipeline"
)

var (
	parseURL string
	parsePDF string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <page.html>",
	Short: "Parse a saved document page without touching the network",
	Long: `Parse runs metadata and provision extraction over a saved portal page and
prints the resulting act record as JSON. The page's original URL decides the
document id. Pages that serve a PDF need the PDF file as well.

Example:
  lexharvest parse law.html --url https://rwandalii.org/akn/rw/act/law/2021/58/eng@2021-10-15
  lexharvest parse law.html --url https://rwandalii.org/akn/rw/act/law/2018/60/eng --pdf law.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseURL, "url", "", "URL the page was served at (required)")
	parseCmd.Flags().StringVar(&parsePDF, "pdf", "", "PDF file for PDF-type pages")
	_ = parseCmd.MarkFlagRequired("url")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	page, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, logger, pipeline.WithCache(cache.Noop{}))
	if err != nil {
		return err
	}

	act, outcome, err := p.ParseLocal(cmd.Context(), page, parseURL, parsePDF)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	for _, w := range outcome.Warnings {
		logger.Warn("extraction warning", "warning", w)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(act)
}
