package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/lexharvest/internal/model"
)

// skipMarkers identify failures that are expected gaps in the source rather
// than defects. Matching is on the message text.
var skipMarkers = []string{
	"image-only",
	"not machine-readable",
	"no extractable text",
}

// Ingester turns one reference into a parsed act
type Ingester interface {
	Ingest(ctx context.Context, ref model.DocumentReference) (*model.ParsedAct, *model.DocumentOutcome, error)
}

// Sink persists parsed acts
type Sink interface {
	WriteAct(ctx context.Context, act *model.ParsedAct) error
}

// BatchProcessor ingests references one at a time in catalog order
type BatchProcessor struct {
	ingester   Ingester
	sink       Sink
	limit      int
	resumeFrom int
	logger     *slog.Logger
}

// NewBatchProcessor creates a processor. A nil logger uses slog.Default().
func NewBatchProcessor(ingester Ingester, sink Sink, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		ingester: ingester,
		sink:     sink,
		logger:   logger,
	}
}

// WithLimit stops after n attempted documents; n <= 0 means no limit
func (b *BatchProcessor) WithLimit(n int) *BatchProcessor {
	b.limit = n
	return b
}

// WithResumeFrom skips references before the 1-based catalog index i
func (b *BatchProcessor) WithResumeFrom(i int) *BatchProcessor {
	b.resumeFrom = i
	return b
}

// Classify maps a document error to its outcome status
func Classify(err error) model.OutcomeStatus {
	if err == nil {
		return model.OutcomeOK
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range skipMarkers {
		if strings.Contains(msg, marker) {
			return model.OutcomeSkipped
		}
	}
	return model.OutcomeFailed
}

// Process ingests refs and records every attempted document in report.
// Document failures are recorded and never stop the batch; only context
// cancellation does.
func (b *BatchProcessor) Process(ctx context.Context, refs []model.DocumentReference, report *model.RunReport) error {
	attempted := 0

	for i, ref := range refs {
		index := i + 1
		if index < b.resumeFrom {
			continue
		}
		if b.limit > 0 && attempted >= b.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		attempted++

		outcome := b.processOne(ctx, ref)
		outcome.Index = index
		report.Record(outcome)

		attrs := []any{"index", index, "total", len(refs), "href", ref.Href, "status", outcome.Status}
		switch outcome.Status {
		case model.OutcomeOK:
			b.logger.Info("document ingested", append(attrs, "id", outcome.ID, "provisions", outcome.Provisions)...)
		case model.OutcomeSkipped:
			b.logger.Warn("document skipped", append(attrs, "reason", outcome.Reason)...)
		default:
			b.logger.Error("document failed", append(attrs, "reason", outcome.Reason)...)
		}
	}

	return nil
}

// ProcessFile reads hrefs from a file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, report *model.RunReport) error {
	refs, err := ReadHrefsFromFile(filePath)
	if err != nil {
		return fmt.Errorf("read hrefs: %w", err)
	}
	return b.Process(ctx, refs, report)
}

func (b *BatchProcessor) processOne(ctx context.Context, ref model.DocumentReference) model.DocumentOutcome {
	act, outcome, err := b.ingester.Ingest(ctx, ref)
	if outcome == nil {
		outcome = &model.DocumentOutcome{Href: ref.Href}
	}

	if err == nil && b.sink != nil {
		if werr := b.sink.WriteAct(ctx, act); werr != nil {
			err = fmt.Errorf("write act: %w", werr)
		}
	}

	outcome.Status = Classify(err)
	if err != nil {
		outcome.Reason = err.Error()
	}
	return *outcome
}

// ReadHrefsFromFile reads document references from a file, one href per
// line. Blank lines and # comments are ignored; hrefs are normalized and
// deduplicated keeping the first occurrence.
func ReadHrefsFromFile(filePath string) ([]model.DocumentReference, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var refs []model.DocumentReference
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		href := model.NormalizeHref(line)
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		refs = append(refs, model.DocumentReference{Href: href})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return refs, nil
}
