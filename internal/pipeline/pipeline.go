package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/lexharvest/internal/cache"
	"github.com/ppiankov/lexharvest/internal/extract"
	"github.com/ppiankov/lexharvest/internal/model"
	"github.com/ppiankov/lexharvest/internal/pdf"
)

// StatusError reports a non-200 answer for a page or PDF
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Status, e.URL)
}

var (
	// ErrNoPDFLink means a PDF-type page did not link its PDF
	ErrNoPDFLink = errors.New("pdf link not found on document page")
	// ErrNoText means the PDF text layer was empty
	ErrNoText = errors.New("no extractable text in PDF")
)

// Pipeline turns one catalog reference into a parsed act
type Pipeline struct {
	fetcher  *Fetcher
	cache    cache.Cache
	metadata *extract.MetadataExtractor
	pdf      *pdf.Extractor
	config   *model.Config
	logger   *slog.Logger
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithFetcher shares an existing fetcher and so its request queue
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithCache replaces the cache built from config
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithPDFExtractor replaces the pdftotext-backed extractor
func WithPDFExtractor(e *pdf.Extractor) Option {
	return func(p *Pipeline) { p.pdf = e }
}

// NewPipeline creates a pipeline from cfg. A nil logger uses slog.Default().
func NewPipeline(cfg *model.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ids, err := extract.NewIDTable(cfg.IDOverrides)
	if err != nil {
		return nil, fmt.Errorf("load id table: %w", err)
	}

	p := &Pipeline{
		metadata: extract.NewMetadataExtractor(ids),
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		p.fetcher = NewFetcher(cfg.HTTP, nil, logger)
	}
	if p.cache == nil {
		p.cache = cache.New(cfg.Cache)
	}
	if p.pdf == nil {
		p.pdf = pdf.NewExtractor(nil, cfg.PDF, logger)
	}

	return p, nil
}

// Fetcher returns the pipeline's fetcher so other components share its queue
func (p *Pipeline) Fetcher() *Fetcher {
	return p.fetcher
}

// Ingest fetches and parses the document behind ref. The outcome is filled
// as far as processing got, also when an error is returned; its Status is
// left to the caller.
func (p *Pipeline) Ingest(ctx context.Context, ref model.DocumentReference) (*model.ParsedAct, *model.DocumentOutcome, error) {
	pageURL, err := p.resolve(ref.Href)
	outcome := &model.DocumentOutcome{Href: ref.Href, URL: pageURL}
	if err != nil {
		return nil, outcome, err
	}

	page, err := p.load(ctx, pageURL, false)
	if err != nil {
		return nil, outcome, fmt.Errorf("load page: %w", err)
	}

	act, err := p.parse(ctx, page, pageURL, outcome, p.fetchPDF)
	return act, outcome, err
}

// ParseLocal parses a saved document page served at pageURL. PDF-type pages
// read their PDF from pdfPath instead of the network.
func (p *Pipeline) ParseLocal(ctx context.Context, page []byte, pageURL, pdfPath string) (*model.ParsedAct, *model.DocumentOutcome, error) {
	outcome := &model.DocumentOutcome{Href: pageURL, URL: pageURL}
	local := func(context.Context, *model.LawMetadata) (string, func(), error) {
		if pdfPath == "" {
			return "", nil, errors.New("page serves a PDF; supply the PDF file")
		}
		return pdfPath, func() {}, nil
	}
	act, err := p.parse(ctx, page, pageURL, outcome, local)
	return act, outcome, err
}

// pdfSource returns a local path for the document's PDF and a cleanup func
type pdfSource func(ctx context.Context, meta *model.LawMetadata) (string, func(), error)

func (p *Pipeline) parse(ctx context.Context, page []byte, pageURL string, outcome *model.DocumentOutcome, source pdfSource) (*model.ParsedAct, error) {
	meta, err := p.metadata.ExtractMetadata(string(page), pageURL)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	outcome.ID = meta.ID
	outcome.SourceType = meta.SourceType

	var provisions []model.Provision
	switch meta.SourceType {
	case model.SourceAKN:
		outcome.Method = string(model.SourceAKN)
		provisions, err = extract.ParseAkn(string(page))
		if err != nil {
			return nil, fmt.Errorf("parse akn: %w", err)
		}

	case model.SourcePDF:
		pdfPath, cleanup, err := source(ctx, meta)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		provisions, err = p.parsePDF(ctx, pdfPath, outcome)
		if err != nil {
			return nil, err
		}
	}

	act := AssembleAct(meta, provisions, p.config.Definitions.Max)
	outcome.Provisions = len(act.Provisions)
	outcome.Definitions = len(act.Definitions)

	p.logger.Debug("document parsed",
		"id", act.ID,
		"source", meta.SourceType,
		"provisions", outcome.Provisions,
		"definitions", outcome.Definitions,
	)
	return act, nil
}

// fetchPDF loads the linked PDF and writes it to a temp file for the text tool
func (p *Pipeline) fetchPDF(ctx context.Context, meta *model.LawMetadata) (string, func(), error) {
	if meta.PDFURL == "" {
		return "", nil, ErrNoPDFLink
	}

	body, err := p.load(ctx, meta.PDFURL, true)
	if err != nil {
		return "", nil, fmt.Errorf("load pdf: %w", err)
	}

	tmp, err := os.CreateTemp("", "lexharvest-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp pdf: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp pdf: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func (p *Pipeline) parsePDF(ctx context.Context, pdfPath string, outcome *model.DocumentOutcome) ([]model.Provision, error) {
	extraction, err := p.pdf.Extract(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	outcome.Method = string(extraction.Method)
	outcome.Warnings = append(outcome.Warnings, extraction.Warnings...)

	if strings.TrimSpace(extraction.Text) == "" {
		return nil, ErrNoText
	}

	provisions, err := pdf.ParseProvisions(extraction.Text)
	if err != nil {
		if len(extraction.Warnings) > 0 {
			return nil, fmt.Errorf("%w (%s)", err, strings.Join(extraction.Warnings, "; "))
		}
		return nil, err
	}
	return provisions, nil
}

// load returns the body at rawURL from cache, else from the network. Only
// 200 responses are cached.
// load returns the body of a 200 response, from cache when possible. Bulk
// bodies (PDFs) bypass the in-memory layer.
func (p *Pipeline) load(ctx context.Context, rawURL string, bulk bool) ([]byte, error) {
	key := cache.Key(rawURL)
	get, set := p.cache.Get, p.cache.Set
	if bulk {
		get = func(key string) ([]byte, bool) { return cache.GetBulk(p.cache, key) }
		set = func(key string, value []byte, ttl time.Duration) error { return cache.SetBulk(p.cache, key, value, ttl) }
	}

	if body, ok := get(key); ok {
		p.logger.Debug("cache hit", "url", rawURL)
		return body, nil
	}

	res, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Status: res.Status}
	}

	if err := set(key, res.Body, 0); err != nil {
		p.logger.Warn("cache write failed", "url", rawURL, "error", err)
	}
	return res.Body, nil
}

// resolve turns a catalog href into an absolute page URL
func (p *Pipeline) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(p.config.Catalog.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
