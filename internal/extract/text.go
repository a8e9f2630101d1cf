package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// blockTags break lines when they open or close
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"li": true, "ul": true, "ol": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true,
}

// lineBreaks inside text nodes are plain whitespace
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// cellTags are separated by a space so adjacent cells do not run together
var cellTags = map[string]bool{"td": true, "th": true}

var (
	spaceBeforePunctRe = regexp.MustCompile(`\s+([,;:.!?])`)
	spaceAfterParenRe  = regexp.MustCompile(`\(\s+`)
	spaceBeforeParenRe = regexp.MustCompile(`\s+\)`)
	degreeRe           = regexp.MustCompile(`(\d)\s+°`)
	apostropheRe       = regexp.MustCompile(`\s+([’'])\s*`)
	slugRe             = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeWhitespace collapses runs of whitespace and tightens the spacing
// around punctuation that markup stripping tends to leave behind
func NormalizeWhitespace(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
	s = spaceAfterParenRe.ReplaceAllString(s, "(")
	s = spaceBeforeParenRe.ReplaceAllString(s, ")")
	s = degreeRe.ReplaceAllString(s, "$1°")
	s = apostropheRe.ReplaceAllString(s, "$1")
	return s
}

// Slug lowercases s and joins its alphanumeric runs with "-"
func Slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// HTMLToText converts a markup fragment to plain text, one line per block
func HTMLToText(fragment string) string {
	_, body := renderText(fragment, "")
	return body
}

// HTMLToLine converts a markup fragment to a single normalized line
func HTMLToLine(fragment string) string {
	return NormalizeWhitespace(strings.ReplaceAll(HTMLToText(fragment), "\n", " "))
}

// renderText walks fragment with the tokenizer. When captureTag is set, the
// text of its first occurrence is returned separately as heading and left
// out of body.
func renderText(fragment, captureTag string) (heading, body string) {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var out, head strings.Builder
	target := &out
	capturing, captured := false, false
	skip := 0
	var spans []bool // true when the open span is an akn-num

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return finishLines(head.String()), finishLines(out.String())

		case html.TextToken:
			if skip == 0 {
				target.WriteString(lineBreaks.Replace(string(z.Text())))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)

			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					skip++
				}
			case tag == "br":
				target.WriteByte('\n')
			case tag == "span" && tt == html.StartTagToken:
				spans = append(spans, hasAttr && hasClass(z, "akn-num"))
			case blockTags[tag]:
				target.WriteByte('\n')
			case cellTags[tag]:
				target.WriteByte(' ')
			}

			if tag == captureTag && !captured && tt == html.StartTagToken {
				capturing = true
				target = &head
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)

			switch {
			case tag == "script" || tag == "style":
				if skip > 0 {
					skip--
				}
			case tag == "span":
				if n := len(spans); n > 0 {
					if spans[n-1] {
						target.WriteByte(' ')
					}
					spans = spans[:n-1]
				}
			case blockTags[tag]:
				target.WriteByte('\n')
			case cellTags[tag]:
				target.WriteByte(' ')
			}

			if tag == captureTag && capturing {
				capturing, captured = false, true
				target = &out
			}
		}
	}
}

// hasClass reports whether the current start tag carries class cls.
// Consumes the tag's attributes.
func hasClass(z *html.Tokenizer, cls string) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, c := range strings.Fields(string(val)) {
				if c == cls {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}

// finishLines NFC-normalizes, collapses whitespace per line and drops blank lines
func finishLines(s string) string {
	s = norm.NFC.String(s)
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = NormalizeWhitespace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
