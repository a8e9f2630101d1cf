package pdf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// parseBboxPages reads pdftotext -bbox-layout output and keeps, per line,
// only the words starting inside [bandMin, bandMax] of the page width
func parseBboxPages(layout string, bandMin, bandMax float64) ([][]string, error) {
	z := html.NewTokenizer(strings.NewReader(layout))

	var pages [][]string
	var page []string
	var words []string
	var word strings.Builder
	var lo, hi float64
	inPage, inWord, keepWord := false, false, false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse bbox layout: %w", err)
			}
			if len(pages) == 0 {
				return nil, errors.New("bbox layout has no pages")
			}
			return pages, nil

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			attrs := map[string]string{}
			if hasAttr {
				attrs = readAttrs(z)
			}

			switch string(name) {
			case "page":
				width, err := strconv.ParseFloat(attrs["width"], 64)
				if err != nil || width <= 0 {
					return nil, fmt.Errorf("parse bbox layout: bad page width %q", attrs["width"])
				}
				lo, hi = width*bandMin, width*bandMax
				page = nil
				inPage = true
			case "line":
				words = words[:0]
			case "word":
				x, err := strconv.ParseFloat(attrs["xmin"], 64)
				inWord = true
				keepWord = err == nil && x >= lo && x <= hi
				word.Reset()
			}

		case html.TextToken:
			if inWord && keepWord {
				word.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "word":
				if keepWord {
					if w := strings.TrimSpace(word.String()); w != "" {
						words = append(words, w)
					}
				}
				inWord, keepWord = false, false
			case "line":
				if inPage && len(words) > 0 {
					page = append(page, strings.Join(strings.Fields(strings.Join(words, " ")), " "))
				}
			case "page":
				pages = append(pages, page)
				inPage = false
			}
		}
	}
}

// readAttrs collects the current tag's attributes with lowercased keys
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}
