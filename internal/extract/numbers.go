package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var wordNumbers = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var (
	digitNumberRe = regexp.MustCompile(`^\d+[A-Za-z]*$`)
	wordSplitRe   = regexp.MustCompile(`[\s-]+`)
	nonLetterRe   = regexp.MustCompile(`[^a-z -]`)
)

// NormalizeArticleNumber turns an article label into its canonical form:
// "12", "12bis" and "3A" are kept; "Twenty-one" becomes "21" and
// "one hundred and five" becomes "105". Anything else passes through trimmed.
func NormalizeArticleNumber(raw string) string {
	cleaned := strings.TrimSuffix(NormalizeWhitespace(raw), ".")
	if digitNumberRe.MatchString(cleaned) {
		return cleaned
	}
	if n, ok := parseWordNumber(cleaned); ok {
		return strconv.Itoa(n)
	}
	return cleaned
}

// IsNumberLabel reports whether label reads as an article number: digits
// with an optional suffix ("12", "12bis") or a cardinal in words
// ("Twenty-one", "one hundred and five")
func IsNumberLabel(label string) bool {
	label = strings.TrimSpace(label)
	if digitNumberRe.MatchString(label) {
		return true
	}
	_, ok := parseWordNumber(label)
	return ok
}

func parseWordNumber(token string) (int, bool) {
	token = nonLetterRe.ReplaceAllString(strings.ToLower(token), " ")

	current, seen := 0, false
	for _, part := range wordSplitRe.Split(token, -1) {
		switch part {
		case "", "and":
			continue
		case "hundred":
			if current == 0 {
				current = 100
			} else {
				current *= 100
			}
			seen = true
			continue
		}
		v, ok := wordNumbers[part]
		if !ok {
			return 0, false
		}
		current += v
		seen = true
	}

	if !seen || current <= 0 {
		return 0, false
	}
	return current, true
}

// ArticleNumberFromID reads the number out of an AKN element id such as
// "chp_1__art_12" and normalizes it
func ArticleNumberFromID(id string) string {
	segment := id
	for _, part := range strings.Split(id, "__") {
		if strings.HasPrefix(part, "art_") {
			segment = part
			break
		}
	}
	return NormalizeArticleNumber(strings.TrimPrefix(segment, "art_"))
}

// ProvisionRef builds the document-unique reference for an article:
// "art" + slug of its number, or "art-" + slug of the element id when the
// number slugs to nothing
func ProvisionRef(section, elementID string) string {
	if s := Slug(section); s != "" {
		return "art" + s
	}
	return "art-" + Slug(elementID)
}
