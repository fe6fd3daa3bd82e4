// internal/scraper/tiers.go
package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ChartMiner/internal/browser"
	"github.com/valpere/ChartMiner/internal/dataset"
)

// Tier is one acquisition strategy in the fallback chain. A tier either
// produces a record (possibly insufficient; the fetcher decides) or an error
// that selects the next tier.
type Tier interface {
	Name() dataset.Tier
	Attempt(ctx context.Context, url string) (*dataset.Record, error)
}

// pageCache memoizes the most recent HTTP body so the http, jsonld, and
// regex tiers issue at most one GET per URL between them.
type pageCache struct {
	client *HTTPClient
	mu     sync.Mutex
	url    string
	html   string
}

func newPageCache(client *HTTPClient) *pageCache {
	return &pageCache{client: client}
}

func (pc *pageCache) load(ctx context.Context, url string) (string, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.url == url && pc.html != "" {
		return pc.html, nil
	}

	html, err := pc.client.Get(ctx, url)
	if err != nil {
		return "", err
	}

	pc.url = url
	pc.html = html
	return html, nil
}

// RenderTier loads the page in a headless browser session and extracts
// fields from the rendered DOM. The session belongs to one worker and is
// never shared.
type RenderTier struct {
	session browser.Session
}

// NewRenderTier wraps a browser session as the first-chance tier.
func NewRenderTier(session browser.Session) *RenderTier {
	return &RenderTier{session: session}
}

func (t *RenderTier) Name() dataset.Tier { return dataset.TierRender }

func (t *RenderTier) Attempt(ctx context.Context, url string) (*dataset.Record, error) {
	html, err := t.session.FetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rendered markup unparsable: %w", err)
	}

	rec := dataset.NewRecord(url, "")
	extractFromDocument(doc, rec)
	rec.Tier = dataset.TierRender
	rec.FetchedAt = time.Now()
	return rec, nil
}

// HTTPTier issues a direct GET and extracts fields by selector from the
// static markup.
type HTTPTier struct {
	pages *pageCache
}

func NewHTTPTier(pages *pageCache) *HTTPTier {
	return &HTTPTier{pages: pages}
}

func (t *HTTPTier) Name() dataset.Tier { return dataset.TierHTTP }

func (t *HTTPTier) Attempt(ctx context.Context, url string) (*dataset.Record, error) {
	html, err := t.pages.load(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("markup unparsable: %w", err)
	}

	rec := dataset.NewRecord(url, "")
	extractFromDocument(doc, rec)
	rec.Tier = dataset.TierHTTP
	rec.FetchedAt = time.Now()
	return rec, nil
}

// JSONLDTier maps the page's embedded schema.org block directly to fields.
type JSONLDTier struct {
	pages *pageCache
}

func NewJSONLDTier(pages *pageCache) *JSONLDTier {
	return &JSONLDTier{pages: pages}
}

func (t *JSONLDTier) Name() dataset.Tier { return dataset.TierJSONLD }

func (t *JSONLDTier) Attempt(ctx context.Context, url string) (*dataset.Record, error) {
	html, err := t.pages.load(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("markup unparsable: %w", err)
	}

	rec := dataset.NewRecord(url, "")
	if !extractFromJSONLD(doc, rec) {
		return nil, fmt.Errorf("no usable structured-data block")
	}
	rec.Tier = dataset.TierJSONLD
	rec.FetchedAt = time.Now()
	return rec, nil
}

// RegexTier pattern-matches the raw markup for the minimum field set. Last
// resort when structure and structured data have both failed.
type RegexTier struct {
	pages *pageCache
}

func NewRegexTier(pages *pageCache) *RegexTier {
	return &RegexTier{pages: pages}
}

func (t *RegexTier) Name() dataset.Tier { return dataset.TierRegex }

func (t *RegexTier) Attempt(ctx context.Context, url string) (*dataset.Record, error) {
	html, err := t.pages.load(ctx, url)
	if err != nil {
		return nil, err
	}

	rec := dataset.NewRecord(url, "")
	extractWithRegex(html, rec)
	rec.Tier = dataset.TierRegex
	rec.FetchedAt = time.Now()
	return rec, nil
}
