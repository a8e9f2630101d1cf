package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/lexharvest/internal/model"
	"github.com/ppiankov/lexharvest/internal/util"
	"github.com/ppiankov/lexharvest/internal/worker"
)

// fetchSleepFunc is the sleep used for retry backoff (injectable for tests)
var fetchSleepFunc = time.Sleep

// retryableStatuses are answered with a backoff and another attempt
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher performs throttled, retrying GET requests. Every attempt, text or
// binary, waits on the same global limiter.
type Fetcher struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	userAgent  string
	maxBytes   int64
	maxRetries int
	logger     *slog.Logger
}

// FetchResult is one HTTP response as seen by the caller
type FetchResult struct {
	Status      int
	Body        []byte
	ContentType string
	FinalURL    string
}

// Text returns the body as a string
func (r *FetchResult) Text() string {
	return string(r.Body)
}

// FetchExhaustedError is returned once every attempt for a URL failed with a
// retryable status or a transport error
type FetchExhaustedError struct {
	URL        string
	Attempts   int
	LastStatus int
	Err        error
}

func (e *FetchExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s after %d attempts: last status %d", e.URL, e.Attempts, e.LastStatus)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}

// NewFetcher creates a Fetcher. A nil limiter gets one built from
// cfg.MinInterval; a nil logger uses slog.Default().
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter, logger *slog.Logger) *Fetcher {
	if limiter == nil {
		limiter = worker.NewLimiter(cfg.MinInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, ""),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		limiter:    limiter,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}

	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.UserAgent).WithWait(limiter.Wait)
	}

	return f
}

// Fetch retrieves rawURL. Non-retryable statuses come back as a normal
// result; only retry exhaustion and unusable URLs are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if f.robots != nil {
		verdict, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !verdict.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, util.ErrDisallowedByRobots)
		}
		if verdict.CrawlDelay > 0 {
			f.limiter.Raise(verdict.CrawlDelay)
		}
	}

	attempts := f.maxRetries + 1
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		result, err := f.do(req)
		switch {
		case err != nil:
			lastStatus, lastErr = 0, err
		case retryableStatuses[result.Status]:
			lastStatus, lastErr = result.Status, nil
		default:
			return result, nil
		}

		if attempt == attempts-1 {
			break
		}

		backoff := backoffFor(attempt)
		f.logger.Warn("retrying fetch",
			"url", rawURL,
			"attempt", attempt+1,
			"status", lastStatus,
			"error", lastErr,
			"backoff", backoff,
		)
		fetchSleepFunc(backoff)
	}

	return nil, &FetchExhaustedError{
		URL:        rawURL,
		Attempts:   attempts,
		LastStatus: lastStatus,
		Err:        lastErr,
	}
}

// backoffFor returns the wait after a failed attempt: 2s, 4s, 8s, ...
func backoffFor(attempt int) time.Duration {
	return time.Duration(1<<(attempt+1)) * time.Second
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("create request: unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,application/pdf,*/*;q=0.8")
	return req, nil
}

// do performs a single attempt. Transport and body read failures are errors;
// any HTTP status is a result.
func (f *Fetcher) do(req *http.Request) (*FetchResult, error) {
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}
