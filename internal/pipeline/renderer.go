package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/ppiankov/lexharvest/internal/model"
)

const (
	reportJSONName = "ingest-report.json"
	reportMDName   = "ingest-report.md"
)

// Sink receives every successfully parsed act and the end of a run
type Sink interface {
	SaveAct(ctx context.Context, act *model.ParsedAct) error
	SetBuiltAt(ctx context.Context, at time.Time) error
}

// Renderer writes acts and run reports under one output directory
type Renderer struct {
	outDir string
	sink   Sink
	logger *slog.Logger
}

// NewRenderer creates a Renderer. sink may be nil.
func NewRenderer(outDir string, sink Sink, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{outDir: outDir, sink: sink, logger: logger}
}

// ActPath is where the act with id is written
func (r *Renderer) ActPath(id string) string {
	return filepath.Join(r.outDir, id+".json")
}

// WriteAct writes <out>/<id>.json, replacing any earlier version, and
// forwards the act to the sink
func (r *Renderer) WriteAct(ctx context.Context, act *model.ParsedAct) error {
	if act.ID == "" {
		return fmt.Errorf("act has no id")
	}

	data, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal act: %w", err)
	}
	if err := writeFileAtomic(r.ActPath(act.ID), append(data, '\n')); err != nil {
		return err
	}

	if r.sink != nil {
		if err := r.sink.SaveAct(ctx, act); err != nil {
			return fmt.Errorf("store act %s: %w", act.ID, err)
		}
	}

	r.logger.Debug("act written", "id", act.ID, "path", r.ActPath(act.ID))
	return nil
}

// WriteReport writes the JSON and Markdown run reports and stamps the sink
func (r *Renderer) WriteReport(ctx context.Context, report *model.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(r.outDir, reportJSONName), append(data, '\n')); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := RenderReportMarkdown(&buf, report); err != nil {
		return fmt.Errorf("render markdown report: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(r.outDir, reportMDName), buf.Bytes()); err != nil {
		return err
	}

	if r.sink != nil {
		if err := r.sink.SetBuiltAt(ctx, report.FinishedAt); err != nil {
			return fmt.Errorf("stamp store: %w", err)
		}
	}
	return nil
}

// RenderReportMarkdown writes a human-readable run summary
func RenderReportMarkdown(w io.Writer, report *model.RunReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Ingest Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.UTC().Format(time.RFC3339)},
			{"Finished", report.FinishedAt.UTC().Format(time.RFC3339)},
			{"Documents", strconv.Itoa(report.Total())},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	rows := [][]string{
		{"Success", strconv.Itoa(report.Success)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Failed", strconv.Itoa(report.Failed)},
	}
	sources := make([]string, 0, len(report.SuccessBySource))
	for src := range report.SuccessBySource {
		sources = append(sources, string(src))
	}
	sort.Strings(sources)
	for _, src := range sources {
		rows = append(rows, []string{"Success (" + src + ")", strconv.Itoa(report.SuccessBySource[model.SourceType(src)])})
	}
	rows = append(rows,
		[]string{"Provisions", strconv.Itoa(report.TotalProvisions)},
		[]string{"Definitions", strconv.Itoa(report.TotalDefinitions)},
	)
	md.Table(markdown.TableSet{Header: []string{"Metric", "Count"}, Rows: rows})
	md.PlainText("")

	if report.HardFailures() > 0 {
		md.Warningf("%d document(s) failed and need attention.", report.HardFailures())
	} else {
		md.Note("No hard failures.")
	}
	md.PlainText("")

	if report.Total() > 0 {
		md.H2("Documents")
		md.PlainText("")
		docRows := make([][]string, 0, len(report.Documents))
		for _, d := range report.Documents {
			docRows = append(docRows, []string{
				strconv.Itoa(d.Index),
				dash(d.ID),
				string(d.Status),
				dash(string(d.SourceType)),
				dash(d.Method),
				strconv.Itoa(d.Provisions),
				strconv.Itoa(d.Definitions),
				dash(noteFor(d)),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"#", "ID", "Status", "Source", "Method", "Provisions", "Definitions", "Notes"},
			Rows:   docRows,
		})
		md.PlainText("")
	}

	return md.Build()
}

func noteFor(d model.DocumentOutcome) string {
	parts := make([]string, 0, 1+len(d.Warnings))
	if d.Reason != "" {
		parts = append(parts, d.Reason)
	}
	parts = append(parts, d.Warnings...)
	return strings.ReplaceAll(strings.Join(parts, "; "), "|", "/")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
