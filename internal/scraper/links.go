// internal/scraper/links.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ChartMiner/internal/browser"
	"github.com/valpere/ChartMiner/internal/utils"
)

// titleHrefPattern matches detail-page links on catalog pages.
const titleHrefPattern = "/title/tt"

var titlePathRe = regexp.MustCompile(`(/title/tt\d+)`)

// LinkCollector discovers the detail URLs for one catalog page, preserving
// order of first discovery because that order encodes the source ranking.
// It mirrors the fetcher's tiering: a browser-driven strategy first, then
// plain HTTP pagination.
type LinkCollector struct {
	client         *HTTPClient
	sessionFactory browser.Factory // nil in fast mode
	logger         utils.Logger
}

// NewLinkCollector builds a collector. A nil session factory restricts it to
// the HTTP pagination strategy.
func NewLinkCollector(client *HTTPClient, factory browser.Factory, logger utils.Logger) *LinkCollector {
	if logger == nil {
		logger = utils.NewComponentLogger("links")
	}
	return &LinkCollector{client: client, sessionFactory: factory, logger: logger}
}

// Collect returns up to limit unique canonical detail URLs for a catalog
// page, stopping early when the source is exhausted.
func (lc *LinkCollector) Collect(ctx context.Context, catalogURL string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	if lc.sessionFactory != nil {
		links, err := lc.collectViaBrowser(ctx, catalogURL, limit)
		if err == nil && len(links) >= limit {
			return links[:limit], nil
		}
		if err != nil {
			lc.logger.Warnf("browser link collection failed for %s, falling back to pagination: %v", catalogURL, err)
		} else {
			lc.logger.Infof("browser collection found %d/%d links for %s, topping up via pagination", len(links), limit, catalogURL)
		}

		paged, perr := lc.collectViaPagination(ctx, catalogURL, limit)
		if perr != nil {
			if len(links) > 0 {
				return links, nil
			}
			return nil, perr
		}
		return mergeOrdered(links, paged, limit), nil
	}

	return lc.collectViaPagination(ctx, catalogURL, limit)
}

// collectViaBrowser drives scroll and "load more" in an owned session.
func (lc *LinkCollector) collectViaBrowser(ctx context.Context, catalogURL string, limit int) ([]string, error) {
	session, err := lc.sessionFactory()
	if err != nil {
		return nil, fmt.Errorf("session open failed: %w", err)
	}
	defer session.Close()

	hrefs, err := session.CollectLinks(ctx, catalogURL, titleHrefPattern, limit*2)
	if err != nil {
		return nil, err
	}

	return canonicalizeAll(hrefs, limit*2), nil
}

// collectViaPagination follows the source's page parameter until a page
// yields zero new links.
func (lc *LinkCollector) collectViaPagination(ctx context.Context, catalogURL string, limit int) ([]string, error) {
	seen := make(map[string]struct{})
	var ordered []string

	page := 1
	for len(ordered) < limit {
		if ctx.Err() != nil {
			return ordered, ctx.Err()
		}

		pageURL, err := withPageParam(catalogURL, page)
		if err != nil {
			return nil, err
		}

		html, err := lc.client.Get(ctx, pageURL)
		if err != nil {
			if len(ordered) > 0 {
				// Partial discovery beats none; gaps are tracked upstream.
				lc.logger.Warnf("pagination stopped at page %d: %v", page, err)
				return ordered, nil
			}
			return nil, err
		}

		added := 0
		for _, link := range extractTitleLinks(html, catalogURL) {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			ordered = append(ordered, link)
			added++
			if len(ordered) >= limit {
				break
			}
		}

		if added == 0 {
			break // source exhausted
		}
		page++
	}

	return ordered, nil
}

// extractTitleLinks pulls canonical detail URLs out of catalog markup,
// preserving document order.
func extractTitleLinks(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Regex salvage keeps pagination alive on broken markup.
		return canonicalizeAll(titlePathRe.FindAllString(html, -1), -1)
	}

	base, _ := url.Parse(baseURL)

	var hrefs []string
	doc.Find("a[href*='" + titleHrefPattern + "']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		hrefs = append(hrefs, href)
	})

	return canonicalizeAll(hrefs, -1)
}

// CanonicalURL normalizes a detail URL to its identity form: scheme+host+
// title path, query and fragment stripped, trailing slash ensured.
func CanonicalURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}

	m := titlePathRe.FindString(u.Path)
	if m == "" {
		return "", false
	}

	host := u.Host
	if host == "" {
		host = "www.imdb.com"
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	return scheme + "://" + host + m + "/", true
}

func canonicalizeAll(raw []string, limit int) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		c, ok := CanonicalURL(r)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// mergeOrdered appends b's links after a's, deduplicating, capped at limit.
func mergeOrdered(a, b []string, limit int) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, limit)
	for _, list := range [][]string{a, b} {
		for _, link := range list {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// withPageParam sets the documented page parameter on a catalog URL.
func withPageParam(catalogURL string, page int) (string, error) {
	u, err := url.Parse(catalogURL)
	if err != nil {
		return "", fmt.Errorf("invalid catalog URL: %w", err)
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
