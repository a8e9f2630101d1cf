package model

// Provision is a single numbered article-level unit of a document
type Provision struct {
	ProvisionRef string `json:"provision_ref"`     // Unique within a document, e.g. "art21"
	Chapter      string `json:"chapter,omitempty"` // Nearest enclosing chapter heading
	Section      string `json:"section"`           // Normalized article number
	Title        string `json:"title"`
	Content      string `json:"content"`
}

// Definition is a (term, definition) pair mined from a definitions provision
type Definition struct {
	Term            string `json:"term"`
	Definition      string `json:"definition"`
	SourceProvision string `json:"source_provision,omitempty"`
}

// ParsedAct is the published unit: metadata plus provisions and definitions.
// A later record with the same ID replaces it entirely.
type ParsedAct struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	TitleEN     string       `json:"title_en"`
	ShortName   string       `json:"short_name"`
	Status      LawStatus    `json:"status"`
	IssuedDate  string       `json:"issued_date"`
	InForceDate string       `json:"in_force_date"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
	Provisions  []Provision  `json:"provisions"`
	Definitions []Definition `json:"definitions"`
}

// DedupeProvisions collapses provisions sharing a ProvisionRef. The entry with
// the longer content wins and keeps the position of the first occurrence.
func DedupeProvisions(provisions []Provision) []Provision {
	index := make(map[string]int, len(provisions))
	out := make([]Provision, 0, len(provisions))

	for _, p := range provisions {
		if i, ok := index[p.ProvisionRef]; ok {
			if len(p.Content) > len(out[i].Content) {
				out[i] = p
			}
			continue
		}
		index[p.ProvisionRef] = len(out)
		out = append(out, p)
	}

	return out
}
