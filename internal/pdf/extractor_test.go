package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/lexharvest/internal/model"
)

type fakeTool struct {
	linear      string
	layout      string
	linearErr   error
	layoutErr   error
	layoutCalls int
}

func (f *fakeTool) Linear(ctx context.Context, pdfPath string) (string, error) {
	return f.linear, f.linearErr
}

func (f *fakeTool) Layout(ctx context.Context, pdfPath string) (string, error) {
	f.layoutCalls++
	return f.layout, f.layoutErr
}

type stubChecker struct{ warning string }

func (s stubChecker) Check(string) string { return s.warning }

func newTestExtractor(tool TextLayerTool) *Extractor {
	return NewExtractor(tool, model.DefaultConfig().PDF, nil).WithLanguageChecker(nil)
}

// englishArticles renders n article blocks of English text
func englishArticles(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Article %d: Heading %d\nThe provisions of this article apply to every person in Rwanda.\n", i, i)
	}
	return b.String()
}

// bboxPage renders one page of a three-column layout, width 600: Kinyarwanda
// words at x=50, English at x=260, French at x=450
func bboxPage(lines [][3]string) string {
	var b strings.Builder
	b.WriteString(`<page width="600.000000" height="800.000000"><flow><block>`)
	for _, l := range lines {
		b.WriteString(`<line>`)
		for i, text := range l {
			if text == "" {
				continue
			}
			x := []int{50, 260, 450}[i]
			for j, w := range strings.Fields(text) {
				fmt.Fprintf(&b, `<word xMin="%d.000000" yMin="10.0" xMax="%d.0" yMax="20.0">%s</word>`, x+j*5, x+j*5+4, w)
			}
		}
		b.WriteString(`</line>`)
	}
	b.WriteString(`</block></flow></page>`)
	return b.String()
}

func bboxDoc(pages ...string) string {
	return `<!DOCTYPE html><html xmlns="http://www.w3.org/1999/xhtml"><head><title></title><meta name="Producer" content="test"/></head><body><doc>` +
		strings.Join(pages, "") + `</doc></body></html>`
}

func TestExtract_PlainText(t *testing.T) {
	tool := &fakeTool{linear: englishArticles(30)}
	result, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Method != MethodPlain {
		t.Errorf("Method = %q", result.Method)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if tool.layoutCalls != 0 {
		t.Error("layout should only be read for trilingual documents")
	}
}

func TestExtract_LowTextWarning(t *testing.T) {
	tool := &fakeTool{linear: "Article 1: Scope\nShort."}
	result, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "image-only") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestExtract_CenterColumnAdopted(t *testing.T) {
	var rows [][3]string
	for i := 1; i <= 5; i++ {
		rows = append(rows,
			[3]string{fmt.Sprintf("Ingingo ya %d", i), fmt.Sprintf("Article %d: Heading", i), fmt.Sprintf("Article %d: Titre", i)},
			[3]string{"Iri tegeko rigena", "This Law determines the rules", "La présente loi détermine"},
		)
	}
	linear := "ISHAKIRO\n" + englishArticles(5) + "Ingingo ya 1\nLoi relative\n"
	tool := &fakeTool{linear: linear, layout: bboxDoc(bboxPage(rows))}

	result, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Method != MethodBboxCenter {
		t.Fatalf("Method = %q, want bbox_center", result.Method)
	}
	if !strings.HasPrefix(result.Text, "Article 1: Heading\nThis Law determines the rules") {
		t.Errorf("Text = %q", result.Text)
	}
	if strings.Contains(result.Text, "Ingingo") || strings.Contains(result.Text, "Titre") {
		t.Errorf("side columns leaked into centre text: %q", result.Text)
	}
}

func TestExtract_CenterColumnRejected(t *testing.T) {
	rows := [][3]string{{"Ingingo ya 1", "x", "Article 1: Titre"}}
	linear := "ISHAKIRO\n" + englishArticles(40)
	tool := &fakeTool{linear: linear, layout: bboxDoc(bboxPage(rows))}

	result, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Method != MethodPlain {
		t.Errorf("Method = %q, want plain", result.Method)
	}
	if tool.layoutCalls != 1 {
		t.Errorf("layoutCalls = %d", tool.layoutCalls)
	}
}

func TestExtract_LayoutFailureIsWarning(t *testing.T) {
	tool := &fakeTool{
		linear:    "TABLE DES MATIERES\n" + englishArticles(30),
		layoutErr: errors.New("exit status 1"),
	}
	result, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatalf("layout failure must not fail extraction: %v", err)
	}
	if result.Method != MethodPlain {
		t.Errorf("Method = %q", result.Method)
	}
	if len(result.Warnings) == 0 || !strings.HasPrefix(result.Warnings[0], "bbox extraction failed: ") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestExtract_LinearFailureIsError(t *testing.T) {
	tool := &fakeTool{linearErr: errors.New("pdftotext: not found")}
	if _, err := newTestExtractor(tool).Extract(context.Background(), "law.pdf"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtract_LanguageWarning(t *testing.T) {
	tool := &fakeTool{linear: englishArticles(30)}
	ex := NewExtractor(tool, model.DefaultConfig().PDF, nil).WithLanguageChecker(stubChecker{warning: "looks French"})

	result, err := ex.Extract(context.Background(), "law.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "looks French" {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestColumnThresholds_Adopt(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name   string
		center string
		plain  string
		want   bool
	}{
		{"empty centre", "", englishArticles(3), false},
		{"enough headings", englishArticles(3), englishArticles(10) + strings.Repeat("x", 10000), true},
		{"min headings floor", englishArticles(2), englishArticles(2) + strings.Repeat("x", 10000), false},
		{"30 percent of many headings", englishArticles(13), englishArticles(40) + strings.Repeat("x", 50000), true},
		{"below 30 percent", englishArticles(11), englishArticles(40) + strings.Repeat("x", 50000), false},
		{"length ratio", strings.Repeat("y", 400), strings.Repeat("x", 1000), true},
		{"below length ratio", strings.Repeat("y", 350), strings.Repeat("x", 1000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.adopt(tt.center, tt.plain); got != tt.want {
				t.Errorf("adopt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripNoise(t *testing.T) {
	var pages [][]string
	for i := 1; i <= 4; i++ {
		pages = append(pages, []string{
			"Official Gazette n° Special of 15/10/2021",
			fmt.Sprintf("Body line %d", i),
			fmt.Sprintf("%d", i),
			"Law relating to personal data",
		})
	}

	text := joinPages(stripNoise(pages))
	want := "Body line 1\n\nBody line 2\n\nBody line 3\n\nBody line 4"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestStripNoise_FewPagesKeepRepeats(t *testing.T) {
	pages := [][]string{{"Same line", "a"}, {"Same line", "b"}}
	text := joinPages(stripNoise(pages))
	if !strings.Contains(text, "Same line") {
		t.Errorf("running headers need at least 3 pages, got %q", text)
	}
}

func TestSplitLinearPages(t *testing.T) {
	pages := splitLinearPages("a  b\n\fc\r\nd\n\f")
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if pages[0][0] != "a b" || pages[1][1] != "d" {
		t.Errorf("pages = %q", pages)
	}
}

func TestParseBboxPages_Errors(t *testing.T) {
	if _, err := parseBboxPages(`<html><body><doc></doc></body></html>`, 0.36, 0.62); err == nil {
		t.Error("expected error for layout without pages")
	}
	if _, err := parseBboxPages(`<page width="abc"></page>`, 0.36, 0.62); err == nil {
		t.Error("expected error for bad width")
	}
}

func TestLinguaChecker(t *testing.T) {
	if testing.Short() {
		t.Skip("loads language models")
	}
	c := NewLinguaChecker()

	english := "The supervisory authority shall ensure that personal data is processed lawfully and that every data subject may exercise the rights provided for by this Law."
	if w := c.Check(english); w != "" {
		t.Errorf("English text warned: %q", w)
	}

	french := "L'autorité de contrôle veille à ce que les données à caractère personnel soient traitées de manière licite et que toute personne concernée puisse exercer ses droits."
	if w := c.Check(french); w == "" {
		t.Error("French text should produce a warning")
	}
}
