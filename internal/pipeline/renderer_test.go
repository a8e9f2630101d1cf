package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/lexharvest/internal/model"
)

type recordingSink struct {
	saved   []string
	builtAt time.Time
	err     error
}

func (s *recordingSink) SaveAct(ctx context.Context, act *model.ParsedAct) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, act.ID)
	return nil
}

func (s *recordingSink) SetBuiltAt(ctx context.Context, at time.Time) error {
	s.builtAt = at
	return nil
}

func sampleReport() *model.RunReport {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := model.NewRunReport("run-1", started)
	report.Record(model.DocumentOutcome{Index: 1, Href: "/a", ID: "rw-a", SourceType: model.SourceAKN, Status: model.OutcomeOK, Provisions: 12, Definitions: 3})
	report.Record(model.DocumentOutcome{Index: 2, Href: "/b", ID: "rw-b", SourceType: model.SourcePDF, Status: model.OutcomeSkipped, Reason: "image-only | scanned"})
	report.Record(model.DocumentOutcome{Index: 3, Href: "/c", Status: model.OutcomeFailed, Reason: "HTTP 500 fetching /c"})
	report.FinishedAt = started.Add(time.Minute)
	return report
}

func TestRenderer_WriteActReplaces(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	r := NewRenderer(dir, sink, nil)
	ctx := context.Background()

	act := &model.ParsedAct{ID: "rw-law-2020-1", Title: "First", Provisions: []model.Provision{}, Definitions: []model.Definition{}}
	if err := r.WriteAct(ctx, act); err != nil {
		t.Fatalf("WriteAct: %v", err)
	}
	act.Title = "Second"
	if err := r.WriteAct(ctx, act); err != nil {
		t.Fatalf("WriteAct: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "rw-law-2020-1.json"))
	if err != nil {
		t.Fatalf("read act: %v", err)
	}
	var got model.ParsedAct
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode act: %v", err)
	}
	if got.Title != "Second" {
		t.Errorf("Title = %q, later record should replace earlier", got.Title)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected one file, got %d", len(entries))
	}
	if len(sink.saved) != 2 {
		t.Errorf("sink saw %d acts", len(sink.saved))
	}
}

func TestRenderer_WriteActErrors(t *testing.T) {
	r := NewRenderer(t.TempDir(), &recordingSink{err: errors.New("disk full")}, nil)

	if err := r.WriteAct(context.Background(), &model.ParsedAct{}); err == nil {
		t.Error("Expected error for act without id")
	}
	err := r.WriteAct(context.Background(), &model.ParsedAct{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v", err)
	}
}

func TestRenderer_WriteReport(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	r := NewRenderer(dir, sink, nil)
	report := sampleReport()

	if err := r.WriteReport(context.Background(), report); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, reportJSONName))
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}
	var decoded model.RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Success != 1 || decoded.Skipped != 1 || decoded.Failed != 1 {
		t.Errorf("counters = %d/%d/%d", decoded.Success, decoded.Skipped, decoded.Failed)
	}

	if _, err := os.Stat(filepath.Join(dir, reportMDName)); err != nil {
		t.Errorf("markdown report missing: %v", err)
	}
	if !sink.builtAt.Equal(report.FinishedAt) {
		t.Errorf("builtAt = %v", sink.builtAt)
	}
}

func TestRenderReportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReportMarkdown(&buf, sampleReport()); err != nil {
		t.Fatalf("RenderReportMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"# Ingest Report", "run-1", "Success (akn)", "rw-a", "1 document(s) failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "image-only | scanned") {
		t.Error("pipe in note should be escaped out of table cells")
	}
}
