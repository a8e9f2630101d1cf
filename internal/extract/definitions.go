package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/lexharvest/internal/model"
)

// DefaultMaxDefinitions caps the definitions kept per document
const DefaultMaxDefinitions = 80

var definitionTitleRe = regexp.MustCompile(`(?i)definition|meaning of`)

// definitionPatterns are tried in order over each candidate provision
var definitionPatterns = []*regexp.Regexp{
	// "term" means ... / "term" refers to ...
	regexp.MustCompile(`(?im)["“]([^"”]{2,80})["”]\s+(?:means|refers to)\s+([^.;]{5,500})`),
	// 1° term means ...
	regexp.MustCompile(`(?im)(?:^|;)\s*(?:\d+[°.)]?\s*)?([A-Za-z][A-Za-z\s\-()/]{2,80})\s+means\s+([^.;]{5,500})`),
	// 1° term: ...
	regexp.MustCompile(`(?im)(?:^|;)\s*(?:\d+[°.)]?\s*)?([A-Za-z][A-Za-z\s\-()/]{2,80})\s*[:\-]\s*([^.;]{5,500})`),
}

var articleTermRe = regexp.MustCompile(`(?i)^article\s+\d+`)

// ExtractDefinitions mines term/definition pairs from provisions titled as
// definitions. Terms are unique case-insensitively, first seen wins, and at
// most limit are returned (limit <= 0 means DefaultMaxDefinitions).
func ExtractDefinitions(provisions []model.Provision, limit int) []model.Definition {
	if limit <= 0 {
		limit = DefaultMaxDefinitions
	}

	var out []model.Definition
	seen := make(map[string]bool)

	for _, p := range provisions {
		if !definitionTitleRe.MatchString(p.Title) || p.Content == "" {
			continue
		}

		for _, re := range definitionPatterns {
			for _, m := range re.FindAllStringSubmatch(p.Content, -1) {
				term := strings.TrimSuffix(NormalizeWhitespace(m[1]), ":")
				definition := NormalizeWhitespace(m[2])

				if len(term) < 2 || len(term) > 80 || len(definition) < 5 {
					continue
				}
				if articleTermRe.MatchString(term) {
					continue
				}

				key := strings.ToLower(term)
				if seen[key] {
					continue
				}
				seen[key] = true

				out = append(out, model.Definition{
					Term:            term,
					Definition:      definition,
					SourceProvision: p.ProvisionRef,
				})
				if len(out) == limit {
					return out
				}
			}
		}
	}

	return out
}
