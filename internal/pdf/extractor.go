package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/ppiankov/lexharvest/internal/model"
)

// Method names the rendering the final text came from
type Method string

const (
	MethodPlain      Method = "plain"
	MethodBboxCenter Method = "bbox_center"
)

// Extraction is the text chosen for a PDF plus anything worth reporting
type Extraction struct {
	Text     string
	Method   Method
	Warnings []string
}

// TextLayerTool reads the text layer of a PDF
type TextLayerTool interface {
	// Linear returns the reading-order text, pages separated by form feeds
	Linear(ctx context.Context, pdfPath string) (string, error)
	// Layout returns the word-level bbox XHTML rendering
	Layout(ctx context.Context, pdfPath string) (string, error)
}

// Pdftotext runs poppler's pdftotext binary
type Pdftotext struct {
	Path string // binary name or path; "pdftotext" when empty
}

func (p Pdftotext) Linear(ctx context.Context, pdfPath string) (string, error) {
	return p.run(ctx, pdfPath, "plain.txt", "-enc", "UTF-8")
}

func (p Pdftotext) Layout(ctx context.Context, pdfPath string) (string, error) {
	return p.run(ctx, pdfPath, "bbox.html", "-bbox-layout", "-enc", "UTF-8")
}

func (p Pdftotext) run(ctx context.Context, pdfPath, outName string, flags ...string) (string, error) {
	bin := p.Path
	if bin == "" {
		bin = "pdftotext"
	}

	dir, err := os.MkdirTemp("", "lexharvest-pdf-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	out := filepath.Join(dir, outName)
	args := append(append([]string{}, flags...), pdfPath, out)

	cmd := exec.CommandContext(ctx, bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s %v: %w: %s", bin, flags, err, trimOutput(output))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("read %s output: %w", bin, err)
	}
	return string(data), nil
}

func trimOutput(b []byte) string {
	const limit = 300
	if len(b) > limit {
		b = b[:limit]
	}
	return string(b)
}

// ColumnThresholds control when the centre-column rendering replaces the
// linear text
type ColumnThresholds struct {
	BandMin      float64 // left edge of the kept band, fraction of page width
	BandMax      float64 // right edge
	HeadingRatio float64 // share of linear article headings the centre text must reach
	MinHeadings  int     // floor for the heading requirement
	LengthRatio  float64 // share of linear text length that also qualifies
}

// DefaultThresholds suit the portal's trilingual Kinyarwanda/English/French layout
func DefaultThresholds() ColumnThresholds {
	return ThresholdsFromConfig(model.DefaultConfig().PDF)
}

// ThresholdsFromConfig reads thresholds from the pdf config section
func ThresholdsFromConfig(cfg model.PDFConfig) ColumnThresholds {
	return ColumnThresholds{
		BandMin:      cfg.BandMin,
		BandMax:      cfg.BandMax,
		HeadingRatio: cfg.HeadingRatio,
		MinHeadings:  cfg.MinHeadings,
		LengthRatio:  cfg.LengthRatio,
	}
}

// adopt reports whether the centre rendering should be used
func (t ColumnThresholds) adopt(center, plain string) bool {
	if len(center) == 0 {
		return false
	}
	need := int(math.Floor(float64(countArticleHeadings(plain)) * t.HeadingRatio))
	if need < t.MinHeadings {
		need = t.MinHeadings
	}
	return countArticleHeadings(center) >= need ||
		float64(len(center)) > float64(len(plain))*t.LengthRatio
}

var (
	trilingualRe     = regexp.MustCompile(`(?i)Ingingo\b|ISHAKIRO|TABLE DES MATIERES|Sommaire|Loi\b`)
	articleHeadingRe = regexp.MustCompile(`(?im)^Article\s+[A-Za-z0-9]+`)
)

func countArticleHeadings(text string) int {
	return len(articleHeadingRe.FindAllStringIndex(text, -1))
}

// IsTrilingual reports whether text carries the Kinyarwanda/French heading
// tokens of a three-column parallel layout
func IsTrilingual(text string) bool {
	return trilingualRe.MatchString(text)
}

// Extractor chooses between linear and centre-column text
type Extractor struct {
	tool         TextLayerTool
	thresholds   ColumnThresholds
	lowTextChars int
	language     LanguageChecker
	logger       *slog.Logger
}

// NewExtractor creates an Extractor. A nil tool runs cfg.Tool as pdftotext;
// a nil logger uses slog.Default().
func NewExtractor(tool TextLayerTool, cfg model.PDFConfig, logger *slog.Logger) *Extractor {
	if tool == nil {
		tool = Pdftotext{Path: cfg.Tool}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		tool:         tool,
		thresholds:   ThresholdsFromConfig(cfg),
		lowTextChars: cfg.LowTextChars,
		language:     NewLinguaChecker(),
		logger:       logger,
	}
}

// WithLanguageChecker replaces the language sanity check; nil disables it
func (e *Extractor) WithLanguageChecker(c LanguageChecker) *Extractor {
	e.language = c
	return e
}

// Extract reads pdfPath. Only a failure of the linear pass is an error.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*Extraction, error) {
	raw, err := e.tool.Linear(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extract text layer: %w", err)
	}

	plain := joinPages(stripNoise(splitLinearPages(raw)))
	result := &Extraction{Text: plain, Method: MethodPlain}

	if IsTrilingual(plain) {
		center, err := e.centerColumn(ctx, pdfPath)
		switch {
		case err != nil:
			result.Warnings = append(result.Warnings, fmt.Sprintf("bbox extraction failed: %v", err))
		case e.thresholds.adopt(center, plain):
			result.Text = center
			result.Method = MethodBboxCenter
		default:
			e.logger.Debug("centre column rejected",
				"pdf", filepath.Base(pdfPath),
				"center_chars", len(center),
				"plain_chars", len(plain),
			)
		}
	}

	if len(result.Text) < e.lowTextChars {
		result.Warnings = append(result.Warnings,
			"very low extracted text volume; PDF may be image-only or heavily degraded")
	}

	if e.language != nil && result.Text != "" {
		if warning := e.language.Check(result.Text); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	return result, nil
}

func (e *Extractor) centerColumn(ctx context.Context, pdfPath string) (string, error) {
	layout, err := e.tool.Layout(ctx, pdfPath)
	if err != nil {
		return "", err
	}
	pages, err := parseBboxPages(layout, e.thresholds.BandMin, e.thresholds.BandMax)
	if err != nil {
		return "", err
	}
	return joinPages(stripNoise(pages)), nil
}
