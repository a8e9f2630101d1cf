package pdf

import (
	"regexp"
	"strings"
)

var (
	gazetteLineRe = regexp.MustCompile(`(?i)^Official Gazette\b`)
	pageNumberRe  = regexp.MustCompile(`^[-–]?\s*\d+\s*[-–]?$`)
)

const (
	// minHeaderPages is the fewest pages on which a running header is detectable
	minHeaderPages = 3
	// maxHeaderLen keeps body paragraphs from being mistaken for headers
	maxHeaderLen = 160
)

// splitLinearPages splits pdftotext output on form feeds into trimmed lines
func splitLinearPages(raw string) [][]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	chunks := strings.Split(raw, "\f")

	pages := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			lines = append(lines, cleanLine(line))
		}
		pages = append(pages, lines)
	}

	// pdftotext ends with a form feed
	if n := len(pages); n > 1 && isBlankPage(pages[n-1]) {
		pages = pages[:n-1]
	}
	return pages
}

func cleanLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

func isBlankPage(lines []string) bool {
	for _, l := range lines {
		if l != "" {
			return false
		}
	}
	return true
}

// stripNoise drops gazette footers, bare page numbers and running headers
func stripNoise(pages [][]string) [][]string {
	headers := runningHeaders(pages)

	out := make([][]string, 0, len(pages))
	for _, page := range pages {
		kept := make([]string, 0, len(page))
		for _, line := range page {
			switch {
			case gazetteLineRe.MatchString(line):
			case pageNumberRe.MatchString(line):
			case line != "" && headers[line]:
			default:
				kept = append(kept, line)
			}
		}
		out = append(out, kept)
	}
	return out
}

// runningHeaders finds lines repeated on at least half the pages
func runningHeaders(pages [][]string) map[string]bool {
	headers := make(map[string]bool)
	if len(pages) < minHeaderPages {
		return headers
	}

	counts := make(map[string]int)
	for _, page := range pages {
		seen := make(map[string]bool)
		for _, line := range page {
			if line == "" || len(line) > maxHeaderLen || seen[line] {
				continue
			}
			if articleHeadingRe.MatchString(line) {
				continue
			}
			seen[line] = true
			counts[line]++
		}
	}

	for line, n := range counts {
		if n*2 >= len(pages) {
			headers[line] = true
		}
	}
	return headers
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// joinPages renders pages as text, one blank line between pages
func joinPages(pages [][]string) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, strings.Join(page, "\n"))
	}
	text := strings.Join(parts, "\n\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
