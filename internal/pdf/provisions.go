package pdf

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ppiankov/lexharvest/internal/extract"
	"github.com/ppiankov/lexharvest/internal/model"
)

// ErrNoArticles means neither heading pattern found an article in the text
var ErrNoArticles = errors.New("no articles found in PDF text")

var (
	// body copies of the title are upper case; references inside articles are not
	lawNumberLineRe   = regexp.MustCompile(`^(?:ORGANIC )?LAW N\s*[°º]`)
	enactmentLineRe   = regexp.MustCompile(`^(?:[A-Z ,:]*\s)?(?:ADOPTS|HAS ADOPTED|ENACTS)\s*:?\s*$`)
	chapterLineRe     = regexp.MustCompile(`^CHAPTER\s+\S+`)
	sectionLineRe     = regexp.MustCompile(`^(?:Section|SECTION)\s+([A-Za-z0-9]+(?:[ -][A-Za-z]+)*)\s*(?:[:.\-–]\s*(.*))?$`)
	subsectionLineRe  = regexp.MustCompile(`^(?:Sub-section|SUB-SECTION|Subsection|SUBSECTION)\s+([A-Za-z0-9]+(?:[ -][A-Za-z]+)*)\s*(?:[:.\-–]\s*(.*))?$`)
	romanNumeralRe    = regexp.MustCompile(`^[IVXLC]+$`)
	bareContextLineRe = regexp.MustCompile(`^\S+\s+\S+\s*:?\s*$`)

	primaryHeadingRe  = regexp.MustCompile(`^(?:Article|ARTICLE)\s+(\d+[A-Za-z]*|[A-Za-z]+(?:[ -][A-Za-z]+)*)\s*[:.\-–]\s*(.*)$`)
	fallbackHeadingRe = regexp.MustCompile(`^(\d{1,3})\s*:\s*(\S.*)$`)
	preambleTitleRe   = regexp.MustCompile(`(?i)^(?:ORGANIC\s+LAW|LAW|DECREE|ORDER)\b|N\s*[°º]`)
)

// headingFunc recognises an article heading line, returning its raw number
// and title
type headingFunc func(line string) (number, title string, ok bool)

var ordinalWords = map[string]bool{
	"first": true, "second": true, "third": true, "fourth": true, "fifth": true,
	"sixth": true, "seventh": true, "eighth": true, "ninth": true, "tenth": true,
	"eleventh": true, "twelfth": true, "thirteenth": true, "fourteenth": true, "fifteenth": true,
	"sixteenth": true, "seventeenth": true, "eighteenth": true, "nineteenth": true, "twentieth": true,
}

// contextLine reports whether line is a "Section <label>[: Title]" style
// heading. A wrapped sentence that merely starts with "Section 2 of ..."
// is not.
func contextLine(re *regexp.Regexp, line string) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	label := m[1]
	if extract.IsNumberLabel(label) || romanNumeralRe.MatchString(label) {
		return true
	}
	last := strings.ToLower(label)
	if i := strings.LastIndexAny(last, " -"); i >= 0 {
		if !extract.IsNumberLabel(last[:i]) {
			return false
		}
		last = last[i+1:]
	}
	return ordinalWords[last]
}

func primaryHeading(line string) (string, string, bool) {
	m := primaryHeadingRe.FindStringSubmatch(line)
	if m == nil || !extract.IsNumberLabel(m[1]) {
		return "", "", false
	}
	return m[1], m[2], true
}

func fallbackHeading(line string) (string, string, bool) {
	m := fallbackHeadingRe.FindStringSubmatch(line)
	if m == nil || preambleTitleRe.MatchString(m[2]) {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseProvisions segments extracted PDF text into article provisions
func ParseProvisions(text string) ([]model.Provision, error) {
	lines := bodyLines(text)

	provisions := scanLines(lines, primaryHeading)
	if len(provisions) == 0 {
		provisions = scanLines(lines, fallbackHeading)
	}
	if len(provisions) == 0 {
		return nil, ErrNoArticles
	}
	return provisions, nil
}

// bodyLines returns the lines after the last law-number heading, else after
// the last enactment formula, else all lines. Earlier copies of the title
// belong to the cover page and table of contents.
func bodyLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, extract.NormalizeWhitespace(l))
	}

	lastLaw, lastEnact := -1, -1
	for i, l := range lines {
		if lawNumberLineRe.MatchString(l) {
			lastLaw = i
		}
		if enactmentLineRe.MatchString(l) {
			lastEnact = i
		}
	}

	switch {
	case lastLaw >= 0:
		return lines[lastLaw+1:]
	case lastEnact >= 0:
		return lines[lastEnact+1:]
	}
	return lines
}

type scanState int

const (
	stateNoOpenArticle scanState = iota
	stateInArticle
)

type openArticle struct {
	number  string
	title   string
	context string
	lines   []string
}

// lineScanner walks body lines tracking chapter context and the open article
type lineScanner struct {
	heading headingFunc
	state   scanState

	chapter    string
	section    string
	subsection string

	// a bare "CHAPTER ONE" / "Section 2" line takes the next line as its title
	pendingContext *string
	// an article heading without a title takes the next line as its title
	pendingTitle bool

	open *openArticle
	out  []model.Provision
}

func scanLines(lines []string, heading headingFunc) []model.Provision {
	s := &lineScanner{heading: heading}
	for _, line := range lines {
		s.feed(line)
	}
	s.flush()
	return s.out
}

func (s *lineScanner) feed(line string) {
	if line == "" {
		return
	}

	isChapter := chapterLineRe.MatchString(line)
	isSection := contextLine(sectionLineRe, line)
	isSubsection := contextLine(subsectionLineRe, line)
	isContext := isChapter || isSection || isSubsection
	number, title, isHeading := s.heading(line)

	if s.pendingContext != nil {
		target := s.pendingContext
		s.pendingContext = nil
		if !isContext && !isHeading {
			*target = strings.TrimSuffix(*target, ":") + ": " + line
			return
		}
	}

	switch {
	case isChapter:
		s.flush()
		s.chapter, s.section, s.subsection = line, "", ""
		if bareContextLineRe.MatchString(line) {
			s.pendingContext = &s.chapter
		}

	case isSection:
		s.flush()
		s.section, s.subsection = line, ""
		if bareContextLineRe.MatchString(line) {
			s.pendingContext = &s.section
		}

	case isSubsection:
		s.flush()
		s.subsection = line
		if bareContextLineRe.MatchString(line) {
			s.pendingContext = &s.subsection
		}

	case isHeading:
		s.flush()
		s.open = &openArticle{
			number:  number,
			title:   strings.TrimSpace(title),
			context: s.context(),
		}
		s.pendingTitle = s.open.title == ""
		s.state = stateInArticle

	case s.state == stateInArticle:
		if s.pendingTitle {
			s.open.title = line
			s.pendingTitle = false
			return
		}
		s.open.lines = append(s.open.lines, line)

	case s.state == stateNoOpenArticle:
		// preamble and stray lines outside any article
	}
}

// context renders the ambient chapter, refined by section and subsection
func (s *lineScanner) context() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.chapter, s.section, s.subsection} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

func (s *lineScanner) flush() {
	if s.open == nil {
		return
	}
	art := s.open
	s.open = nil
	s.state = stateNoOpenArticle
	s.pendingTitle = false

	content := extract.NormalizeWhitespace(strings.Join(art.lines, " "))
	if len(content) < 3 {
		return
	}

	section := extract.NormalizeArticleNumber(art.number)
	title := art.title
	if title == "" {
		title = "Article " + section
	}

	s.out = append(s.out, model.Provision{
		ProvisionRef: extract.ProvisionRef(section, art.number),
		Chapter:      art.context,
		Section:      section,
		Title:        title,
		Content:      content,
	})
}
