package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// ErrDisallowedByRobots is returned when robots.txt forbids a path
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// RobotsVerdict is the robots.txt answer for one URL
type RobotsVerdict struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker fetches robots.txt once per host and answers path checks.
// An unreachable robots.txt allows everything.
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.Mutex
	httpClient *http.Client
	userAgent  string
	agent      string
	wait       func(context.Context) error
}

// NewRobotsChecker creates a checker that issues its own requests with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
		agent:      NormalizeUserAgent(userAgent),
	}
}

// WithWait installs a hook run before each robots.txt request, so robots
// lookups go through the same request queue as everything else
func (r *RobotsChecker) WithWait(wait func(context.Context) error) *RobotsChecker {
	r.wait = wait
	return r
}

// Check returns whether rawURL may be fetched and the host's crawl delay
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsVerdict, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsVerdict{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return RobotsVerdict{}, fmt.Errorf("parse URL: missing host in %q", rawURL)
	}

	data := r.robotsFor(ctx, parsed)
	if data == nil {
		return RobotsVerdict{Allowed: true}, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	verdict := RobotsVerdict{Allowed: data.TestAgent(path, r.agent)}
	if group := data.FindGroup(r.agent); group != nil {
		verdict.CrawlDelay = group.CrawlDelay
	}
	return verdict, nil
}

// robotsFor returns cached robots data for the URL's host, fetching it on
// first use. Fetch failures are cached as nil so they are not retried.
func (r *RobotsChecker) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	r.mu.Lock()
	data, ok := r.cache[u.Host]
	r.mu.Unlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host))

	r.mu.Lock()
	r.cache[u.Host] = data
	r.mu.Unlock()
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	if r.wait != nil {
		if err := r.wait(ctx); err != nil {
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	// robotstxt treats 5xx as disallow-all; a flaky robots endpoint should not
	// block ingestion
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// NormalizeUserAgent reduces a User-Agent to the product token used for
// robots.txt group matching ("lexharvest/0.1 (+url)" -> "lexharvest")
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
