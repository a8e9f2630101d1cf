package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/lexharvest/internal/model"
	"github.com/ppiankov/lexharvest/internal/pipeline"
)

func hit(href, title, citation string) string {
	return `<li class="hit"><a href="` + href + `">` + title + `</a><div class="text-muted">` + citation + `</div></li>`
}

func writeResults(w http.ResponseWriter, count int, hits ...string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":        count,
		"results_html": "<ul>" + strings.Join(hits, "") + "</ul>",
	})
}

func newTestCollector(t *testing.T, serverURL string, startYear int) *Collector {
	t.Helper()
	fetcher := pipeline.NewFetcher(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   0,
	}, nil, nil)

	cfg := model.CatalogConfig{
		BaseURL:     serverURL,
		SearchPath:  "/search/api/documents/",
		GenericTerm: "law",
		StartYear:   startYear,
		PageSize:    2,
	}
	return NewCollector(fetcher, cfg, nil).WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	})
}

func TestCollector_Queries(t *testing.T) {
	c := newTestCollector(t, "http://example.invalid", 2022)
	queries := c.Queries()

	want := []string{"law", "2022", "2023", "2024"}
	if len(queries) != len(want) {
		t.Fatalf("queries = %+v", queries)
	}
	for i, q := range queries {
		if q.Label != want[i] {
			t.Errorf("query %d = %q, want %q", i, q.Label, want[i])
		}
	}
	if queries[0].Year != 0 || queries[1].Year != 2022 {
		t.Errorf("year filters = %d/%d", queries[0].Year, queries[1].Year)
	}
}

func TestCollector_Collect(t *testing.T) {
	var mu sync.Mutex
	var requests []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		requests = append(requests, q.Get("year")+"/"+q.Get("page"))
		mu.Unlock()

		if q.Get("page_size") != "2" || q.Get("search") != "law" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		switch q.Get("year") + "/" + q.Get("page") {
		case "/1":
			writeResults(w, 3,
				hit("/akn/rw/act/law/2021/58/eng@2021-10-15", "Personal data protection", "Law 58 of 2021"),
				hit("https://rwandalii.org/akn/rw/act/law/2018/60/eng@2018-09-25", "Cybercrimes", "Law 60 of 2018"),
			)
		case "/2":
			writeResults(w, 3,
				`<div><a href="/akn/rw/act/law/2017/26/eng@2017-07-03">NCSA</a></div>`,
				`<a href="/akn/rw/act/law/2017/26/eng@2017-07-03/source.pdf">PDF</a>`,
			)
		case "2022/1":
			writeResults(w, 5,
				hit("/akn/rw/act/law/2021/58/eng@2022-01-01", "Personal data protection (amended)", "Law 58 of 2021"),
			)
		case "2022/2":
			w.WriteHeader(http.StatusBadRequest)
		case "2023/1":
			w.WriteHeader(http.StatusInternalServerError)
		case "2024/1":
			writeResults(w, 0)
		default:
			t.Errorf("unexpected request %s", r.URL.RawQuery)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	refs, err := newTestCollector(t, server.URL, 2022).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []model.DocumentReference{
		{Href: "/akn/rw/act/law/2021/58/eng", Title: "Personal data protection", Citation: "Law 58 of 2021"},
		{Href: "/akn/rw/act/law/2018/60/eng", Title: "Cybercrimes", Citation: "Law 60 of 2018"},
		{Href: "/akn/rw/act/law/2017/26/eng", Title: "NCSA", Citation: "NCSA"},
	}
	if len(refs) != len(want) {
		t.Fatalf("refs = %+v", refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("ref %d = %+v, want %+v", i, refs[i], want[i])
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 6 {
		t.Errorf("requests = %v", requests)
	}
}

func TestCollector_AllQueriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestCollector(t, server.URL, 2024).Collect(context.Background())
	if err == nil {
		t.Fatal("expected error when every query fails")
	}
	if !strings.Contains(err.Error(), "all 2 catalog queries failed") {
		t.Errorf("err = %v", err)
	}
}

func TestCollector_FirstPage400IsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("year") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeResults(w, 1, hit("/akn/rw/act/law/2024/1/eng@2024-01-01", "Budget", "Law 1 of 2024"))
	}))
	defer server.Close()

	refs, err := newTestCollector(t, server.URL, 2024).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Href != "/akn/rw/act/law/2024/1/eng" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestParseResults(t *testing.T) {
	fragment := `<ul>
<li><a href="/akn/rw/act/law/2013/9/eng@2013-04-08?tab=summary">  RURA
  establishment </a><span class="citation">Law 9 of 2013</span></li>
<li><a href="/en/about">About</a></li>
<li><a href="/akn/rw/act/law/2013/9/eng@2013-04-08#part_1">duplicate</a></li>
</ul>`

	refs, err := ParseResults(fragment)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	want := model.DocumentReference{Href: "/akn/rw/act/law/2013/9/eng", Title: "RURA establishment", Citation: "Law 9 of 2013"}
	if refs[0] != want {
		t.Errorf("ref = %+v, want %+v", refs[0], want)
	}
}
