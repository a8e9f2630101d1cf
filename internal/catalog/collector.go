package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/lexharvest/internal/extract"
	"github.com/ppiankov/lexharvest/internal/model"
	"github.com/ppiankov/lexharvest/internal/pipeline"
)

// Fetcher is the subset of pipeline.Fetcher the collector needs
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*pipeline.FetchResult, error)
}

// searchResponse is the portal's search API payload
type searchResponse struct {
	Count       int    `json:"count"`
	ResultsHTML string `json:"results_html"`
}

// Query is one paginated search
type Query struct {
	Label string
	Term  string
	Year  int // 0 for the unfiltered query
}

// Collector discovers document references through the portal search API
type Collector struct {
	fetcher Fetcher
	cfg     model.CatalogConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewCollector creates a Collector. A nil logger uses slog.Default().
func NewCollector(fetcher Fetcher, cfg model.CatalogConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = model.DefaultConfig().Catalog.PageSize
	}
	return &Collector{fetcher: fetcher, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock overrides the clock that decides the last year queried
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Queries lists the generic query followed by one query per year from
// StartYear through the current year
func (c *Collector) Queries() []Query {
	queries := []Query{{Label: c.cfg.GenericTerm, Term: c.cfg.GenericTerm}}
	for year := c.cfg.StartYear; year > 0 && year <= c.now().Year(); year++ {
		queries = append(queries, Query{
			Label: strconv.Itoa(year),
			Term:  c.cfg.GenericTerm,
			Year:  year,
		})
	}
	return queries
}

// Collect runs every query and returns the references deduplicated by
// normalized href in first-seen order. Failed queries are logged and
// skipped; only a run where every query failed is an error.
func (c *Collector) Collect(ctx context.Context) ([]model.DocumentReference, error) {
	queries := c.Queries()

	seen := make(map[string]bool)
	var refs []model.DocumentReference
	var lastErr error
	failed := 0

	for _, q := range queries {
		hits, err := c.runQuery(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			c.logger.Warn("catalog query failed", "query", q.Label, "error", err, "partial_hits", len(hits))
		}

		added := 0
		for _, hit := range hits {
			if seen[hit.Href] {
				continue
			}
			seen[hit.Href] = true
			refs = append(refs, hit)
			added++
		}

		c.logger.Debug("catalog query done", "query", q.Label, "hits", len(hits), "new", added)
	}

	if failed == len(queries) {
		return nil, fmt.Errorf("all %d catalog queries failed: %w", failed, lastErr)
	}

	c.logger.Info("catalog collected", "documents", len(refs), "queries", len(queries), "failed_queries", failed)
	return refs, nil
}

func (c *Collector) runQuery(ctx context.Context, q Query) ([]model.DocumentReference, error) {
	var hits []model.DocumentReference

	for page := 1; ; page++ {
		res, err := c.fetcher.Fetch(ctx, c.pageURL(q, page))
		if err != nil {
			return hits, err
		}

		if res.Status == http.StatusBadRequest && page > 1 {
			return hits, nil
		}
		if res.Status != http.StatusOK {
			return hits, fmt.Errorf("page %d: HTTP %d", page, res.Status)
		}

		var payload searchResponse
		if err := json.Unmarshal(res.Body, &payload); err != nil {
			return hits, fmt.Errorf("page %d: decode search response: %w", page, err)
		}

		pageHits, err := ParseResults(payload.ResultsHTML)
		if err != nil {
			return hits, fmt.Errorf("page %d: %w", page, err)
		}
		if len(pageHits) == 0 {
			return hits, nil
		}
		hits = append(hits, pageHits...)

		if page*c.cfg.PageSize >= payload.Count {
			return hits, nil
		}
	}
}

func (c *Collector) pageURL(q Query, page int) string {
	params := url.Values{}
	params.Set("search", q.Term)
	if q.Year > 0 {
		params.Set("year", strconv.Itoa(q.Year))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.cfg.PageSize))

	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(c.cfg.SearchPath, "/") + "?" + params.Encode()
}

// ParseResults reads document hits from a search results fragment
func ParseResults(fragment string) ([]model.DocumentReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse results fragment: %w", err)
	}

	var refs []model.DocumentReference
	seen := make(map[string]bool)

	doc.Find(`a[href*="/akn/"]`).Each(func(_ int, a *goquery.Selection) {
		raw, _ := a.Attr("href")
		href := hitPath(raw)
		if href == "" || seen[href] {
			return
		}
		seen[href] = true

		title := extract.NormalizeWhitespace(a.Text())
		if title == "" {
			title = href
		}

		citation := ""
		container := a.Closest("li, .hit")
		if container.Length() > 0 {
			citation = extract.NormalizeWhitespace(container.Find(".citation, .text-muted").First().Text())
		}
		if citation == "" {
			citation = title
		}

		refs = append(refs, model.DocumentReference{Href: href, Title: title, Citation: citation})
	})

	return refs, nil
}

// hitPath reduces a result link to a normalized /akn/ document path,
// rejecting direct file links
func hitPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	path := model.NormalizeHref(u.Path)
	if !strings.HasPrefix(path, "/akn/") || strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return ""
	}
	return path
}
