package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/ppiankov/lexharvest/internal/model"
)

var (
	// ErrMissingTitle means no title source on the page yielded text
	ErrMissingTitle = errors.New("could not parse document title")
	// ErrNotMachineReadable means the page serves neither AKN markup nor a PDF
	ErrNotMachineReadable = errors.New("document is not machine-readable")
)

var (
	siteSuffixRe  = regexp.MustCompile(`\s*[–-]\s*RwandaLII\s*$`)
	assentedRe    = regexp.MustCompile(`(?i)Assented to on\s+([^<]+)<`)
	commencedRe   = regexp.MustCompile(`(?i)Commenced on\s+([^<]+)<`)
	repealMarkRe  = regexp.MustCompile(`(?i)\b(has been repealed|was repealed|repealed by)\b`)
	eventAssent   = regexp.MustCompile(`(?i)\bassented\b`)
	eventCommence = regexp.MustCompile(`(?i)\bcommenced\b`)
	eventGazette  = regexp.MustCompile(`(?i)\bpublished in official gazette\b`)
)

// documentBodySelectors hold the law text itself; repeal markers are only
// looked for outside them
const documentBodySelectors = "la-akoma-ntoso, .akn-akomaNtoso, .content__html, #document-content"

// MetadataExtractor reads document-level fields from a portal page
type MetadataExtractor struct {
	ids *IDTable
}

// NewMetadataExtractor creates an extractor resolving ids through ids
func NewMetadataExtractor(ids *IDTable) *MetadataExtractor {
	return &MetadataExtractor{ids: ids}
}

// ExtractMetadata parses pageHTML, served at pageURL
func (e *MetadataExtractor) ExtractMetadata(pageHTML, pageURL string) (*model.LawMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	sourceType, err := displayType(doc)
	if err != nil {
		return nil, err
	}

	title := documentTitle(doc)
	if title == "" {
		return nil, ErrMissingTitle
	}

	workPath := model.WorkPath(base.Path)
	entry, _ := e.ids.Lookup(workPath)

	citation := NormalizeWhitespace(doc.Find("h2.h5.text-muted").First().Text())
	if citation == "" {
		citation = entry.ShortName
	}
	if citation == "" {
		citation = title
	}

	issued := firstDate(
		func() string { return labelDate(pageHTML, assentedRe) },
		func() string { return timelineDate(doc, eventAssent) },
		func() string { return timelineDate(doc, eventGazette) },
	)
	inForce := firstDate(
		func() string { return labelDate(pageHTML, commencedRe) },
		func() string { return timelineDate(doc, eventCommence) },
		func() string { return timelineDate(doc, eventGazette) },
		func() string { return issued },
	)
	if issued == "" {
		issued = inForce
	}
	if issued == "" {
		issued = model.SentinelDate
	}
	if inForce == "" {
		inForce = model.SentinelDate
	}

	meta := &model.LawMetadata{
		ID:          e.ids.Resolve(workPath),
		Title:       title,
		TitleEN:     title,
		ShortName:   citation,
		Status:      documentStatus(doc),
		IssuedDate:  issued,
		InForceDate: inForce,
		URL:         pageURL,
		SourceType:  sourceType,
		WorkURI:     workPath,
		Description: entry.Description,
	}

	if sourceType == model.SourcePDF {
		meta.PDFURL = pdfLink(doc, base)
	}

	return meta, nil
}

func displayType(doc *goquery.Document) (model.SourceType, error) {
	raw, ok := doc.Find("[data-display-type]").First().Attr("data-display-type")
	value := strings.ToLower(strings.TrimSpace(raw))
	if !ok || value == "" {
		value = "unknown"
	}

	switch model.SourceType(value) {
	case model.SourceAKN, model.SourcePDF:
		return model.SourceType(value), nil
	}
	return "", fmt.Errorf("%w (data-display-type=%s)", ErrNotMachineReadable, value)
}

func documentTitle(doc *goquery.Document) string {
	if t := NormalizeWhitespace(doc.Find("h1.doc-title span").First().Text()); t != "" {
		return t
	}
	if t := NormalizeWhitespace(doc.Find(".coverpage h1").First().Text()); t != "" {
		return t
	}
	t := NormalizeWhitespace(doc.Find("title").First().Text())
	return strings.TrimSpace(siteSuffixRe.ReplaceAllString(t, ""))
}

func documentStatus(doc *goquery.Document) model.LawStatus {
	page := doc.Find("body").Clone()
	page.Find(documentBodySelectors).Remove()
	page.Find("script, style").Remove()
	if repealMarkRe.MatchString(page.Text()) {
		return model.StatusRepealed
	}
	return model.StatusInForce
}

func pdfLink(doc *goquery.Document, base *url.URL) string {
	href, ok := doc.Find(`a[href$=".pdf"]`).First().Attr("href")
	if !ok {
		href, ok = doc.Find("[data-pdf-url]").First().Attr("data-pdf-url")
	}
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func firstDate(sources ...func() string) string {
	for _, src := range sources {
		if d := src(); d != "" {
			return d
		}
	}
	return ""
}

func labelDate(pageHTML string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(pageHTML)
	if m == nil {
		return ""
	}
	return ParseHumanDate(m[1])
}

// timelineDate scans the portal's history timeline for the first entry whose
// body matches event and whose heading holds a parseable date
func timelineDate(doc *goquery.Document, event *regexp.Regexp) string {
	var found string
	doc.Find(".vertical-timeline__item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		body := item.Find(".card-body").First().Text()
		if !event.MatchString(body) {
			return true
		}
		heading := item.Find("h5.mb-0").First()
		ownText := heading.Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
			return goquery.NodeName(s) == "#text"
		}).Text()
		if d := ParseHumanDate(ownText); d != "" {
			found = d
			return false
		}
		return true
	})
	return found
}

// ParseHumanDate converts "15 October 2021" (and other forms dateparse
// understands) to YYYY-MM-DD. Unparseable input gives "".
func ParseHumanDate(s string) string {
	s = strings.Trim(NormalizeWhitespace(s), ",. ")
	if s == "" {
		return ""
	}
	if t, err := time.Parse("2 January 2006", s); err == nil {
		return t.Format(time.DateOnly)
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.Format(time.DateOnly)
	}
	return ""
}
