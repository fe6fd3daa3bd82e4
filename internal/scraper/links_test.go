// internal/scraper/links_test.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient() *HTTPClient {
	return NewHTTPClient(ClientConfig{RateLimit: 1000, RateBurst: 100})
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"https://www.imdb.com/title/tt0111161/?ref_=chttp_t_1", "https://www.imdb.com/title/tt0111161/", true},
		{"https://www.imdb.com/title/tt0111161", "https://www.imdb.com/title/tt0111161/", true},
		{"https://www.imdb.com/title/tt0111161/#top", "https://www.imdb.com/title/tt0111161/", true},
		{"/title/tt0068646/fullcredits", "https://www.imdb.com/title/tt0068646/", true},
		{"https://www.imdb.com/chart/top/", "", false},
		{"not a url at all ::", "", false},
	}

	for _, tt := range tests {
		got, ok := CanonicalURL(tt.input)
		if ok != tt.ok {
			t.Fatalf("CanonicalURL(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
		if got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// paginatedCatalog serves three pages of detail links, then empty pages.
func paginatedCatalog(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string][]int{
		"1": {1, 2, 3, 4, 5},
		"2": {6, 7, 8},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		fmt.Fprint(w, "<html><body><ul>")
		for _, n := range pages[page] {
			// Duplicate anchors and tracking params must collapse away.
			fmt.Fprintf(w, `<li><a href="/title/tt%07d/?ref_=chttp_t_%d">Title %d</a>`, n, n, n)
			fmt.Fprintf(w, `<a href="/title/tt%07d/">poster</a></li>`, n)
		}
		fmt.Fprint(w, "</ul></body></html>")
	}))
}

func TestCollectViaPagination(t *testing.T) {
	server := paginatedCatalog(t)
	defer server.Close()

	lc := NewLinkCollector(testClient(), nil, nil)
	links, err := lc.Collect(context.Background(), server.URL+"/chart/top/", 10)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	// Source exhausts at 8 titles even though 10 were requested.
	if len(links) != 8 {
		t.Fatalf("collected %d links, want 8: %v", len(links), links)
	}
	want := fmt.Sprintf("%s/title/tt0000001/", server.URL)
	if links[0] != want {
		t.Errorf("first link = %q, want %q (discovery order)", links[0], want)
	}

	seen := make(map[string]struct{})
	for _, l := range links {
		if _, dup := seen[l]; dup {
			t.Errorf("duplicate link %q", l)
		}
		seen[l] = struct{}{}
	}
}

func TestCollectHonorsLimit(t *testing.T) {
	server := paginatedCatalog(t)
	defer server.Close()

	lc := NewLinkCollector(testClient(), nil, nil)
	links, err := lc.Collect(context.Background(), server.URL+"/chart/top/", 3)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(links) != 3 {
		t.Errorf("collected %d links, want exactly 3", len(links))
	}
}

func TestCollectRejectsNonPositiveLimit(t *testing.T) {
	lc := NewLinkCollector(testClient(), nil, nil)
	if _, err := lc.Collect(context.Background(), "http://example.com/chart/", 0); err == nil {
		t.Error("expected error for zero limit")
	}
}
