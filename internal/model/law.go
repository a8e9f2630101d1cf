package model

import (
	"regexp"
	"strings"
)

// SourceType identifies which rendering of a document the portal serves
type SourceType string

const (
	SourceAKN SourceType = "akn" // Structured article-level markup
	SourcePDF SourceType = "pdf" // Scanned or typeset PDF with a text layer
)

// LawStatus is the legal status of a document
type LawStatus string

const (
	StatusInForce       LawStatus = "in_force"
	StatusAmended       LawStatus = "amended" // Valid value, never inferred from source pages
	StatusRepealed      LawStatus = "repealed"
	StatusNotYetInForce LawStatus = "not_yet_in_force"
)

// SentinelDate fills date fields that no source signal could populate
const SentinelDate = "1900-01-01"

// DocumentReference is a candidate document discovered on a catalog page
type DocumentReference struct {
	Href     string `json:"href"`               // Normalized path, dated expression stripped
	Title    string `json:"title"`              // Anchor text from the catalog hit
	Citation string `json:"citation,omitempty"` // Citation line shown under the hit
}

// LawMetadata describes a single document independent of its provisions
type LawMetadata struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TitleEN     string     `json:"title_en"`
	ShortName   string     `json:"short_name"`
	Status      LawStatus  `json:"status"`
	IssuedDate  string     `json:"issued_date"`
	InForceDate string     `json:"in_force_date"`
	URL         string     `json:"url"`
	SourceType  SourceType `json:"source_type"`
	WorkURI     string     `json:"work_uri,omitempty"`
	PDFURL      string     `json:"pdf_url,omitempty"`
	Description string     `json:"description,omitempty"`
}

var datedExpressionRe = regexp.MustCompile(`@[^/]*$`)
var languageSegmentRe = regexp.MustCompile(`/[a-z]{3}$`)

// NormalizeHref strips query, fragment and any dated-expression suffix
// ("/eng@2021-10-15" -> "/eng") from a portal href.
func NormalizeHref(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = datedExpressionRe.ReplaceAllString(href, "")
	return strings.TrimRight(href, "/")
}

// WorkPath reduces an expression path to its version-independent work path
// ("/akn/rw/act/law/2021/58/eng@2021-10-15" -> "/akn/rw/act/law/2021/58").
func WorkPath(path string) string {
	path = NormalizeHref(path)
	return languageSegmentRe.ReplaceAllString(path, "")
}
