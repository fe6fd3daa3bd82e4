// internal/scraper/extract.go
package scraper

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ChartMiner/internal/dataset"
)

// Selector lists tried in order for each field. The source's markup shifts
// between layout generations, so every field carries old and new selectors.
var (
	ratingSelectors = []string{
		"div[data-testid='hero-rating-bar__aggregate-rating__score'] span:first-child",
		"span[itemprop='ratingValue']",
	}
	yearSelectors = []string{
		"a[href*='/releaseinfo']",
		"span#titleYear a",
	}
	metascoreSelectors = []string{
		"span.metacritic-score-box",
		"div.metacriticScore span",
		"span[class*='metascore']",
	}
	votesSelectors = []string{
		"div[data-testid='hero-rating-bar__aggregate-rating'] div.sc-bde20123-3",
		"span[itemprop='ratingCount']",
	}
	durationSelectors = []string{
		"li[data-testid='title-techspec_runtime'] div",
		"ul[data-testid='hero-title-block__metadata'] li",
		"time",
	}
	genreSelectors = []string{
		"div[data-testid='genres'] a",
		"div[data-testid='interests'] a",
		"a[href*='genres=']",
	}
)

var (
	pageRatingRe    = regexp.MustCompile(`(\d\.\d)\s*/\s*10`)
	pageVotesRe     = regexp.MustCompile(`(?i)([\d,.]+[KM]?)\s*(?:ratings|user)`)
	pageMetascoreRe = regexp.MustCompile(`(?i)metascore[^\d]{0,40}(\d{1,3})`)
	pageDurationRe  = regexp.MustCompile(`(?i)(\d+\s*h(?:ours?)?(?:\s*\d+\s*m(?:in)?)?|\d{2,3}\s*min)`)
	pageTitleRe     = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagRe           = regexp.MustCompile(`<[^>]*>`)

	// durationUnitRe gates duration candidates from broad selectors: the
	// hero-metadata list mixes runtime with year and certification items, and
	// a unit-less "2010" or "PG-13" must never be read as minutes.
	durationUnitRe = regexp.MustCompile(`(?i)\d+\s*h|\d+\s*min|\d+\s*m\b|^pt`)
)

// extractFromDocument fills record fields from a parsed markup tree. Fields
// it cannot find stay absent; it never invents values.
func extractFromDocument(doc *goquery.Document, rec *dataset.Record) {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		rec.Title = title
	}

	if txt := firstText(doc, ratingSelectors); txt != "" {
		if v, ok := ParseRating(txt); ok {
			rec.Rating = dataset.FloatPtr(v)
		}
	}

	if txt := firstText(doc, yearSelectors); txt != "" {
		if v, ok := ParseYear(txt); ok {
			rec.Year = dataset.IntPtr(v)
		}
	}

	if txt := firstText(doc, metascoreSelectors); txt != "" {
		if v, ok := ParseMetascore(txt); ok {
			rec.Metascore = dataset.IntPtr(v)
		}
	}

	if txt := firstText(doc, votesSelectors); txt != "" {
		if v, ok := ParseVotes(txt); ok && v > 0 {
			rec.Votes = dataset.IntPtr(v)
		}
	}

	for _, sel := range durationSelectors {
		found := false
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			txt := strings.TrimSpace(s.Text())
			if !durationUnitRe.MatchString(txt) {
				return true
			}
			if v, ok := ParseDurationMinutes(txt); ok {
				rec.RawDuration = txt
				rec.DurationMin = dataset.IntPtr(v)
				found = true
				return false
			}
			return true
		})
		if found {
			break
		}
	}

	for _, sel := range genreSelectors {
		var genres []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if g := strings.TrimSpace(s.Text()); g != "" {
				genres = append(genres, g)
			}
		})
		if len(genres) > 0 {
			rec.Genres = dedupeStrings(genres)
			break
		}
	}
}

// ldDocument is the subset of a schema.org JSON-LD block we map to fields.
type ldDocument struct {
	Type            interface{}     `json:"@type"`
	Name            string          `json:"name"`
	Genre           interface{}     `json:"genre"`
	Duration        string          `json:"duration"`
	DatePublished   string          `json:"datePublished"`
	AggregateRating *ldAggregateRate `json:"aggregateRating"`
}

type ldAggregateRate struct {
	RatingValue json.Number `json:"ratingValue"`
	RatingCount json.Number `json:"ratingCount"`
}

// extractFromJSONLD parses embedded structured-data blocks and maps them onto
// the record. Trailer VideoObject blocks are skipped so their duration never
// shadows the title's runtime.
func extractFromJSONLD(doc *goquery.Document, rec *dataset.Record) bool {
	matched := false

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var ld ldDocument
		if err := json.Unmarshal([]byte(raw), &ld); err != nil {
			return true // malformed block, try the next one
		}
		if !isTitleType(ld.Type) {
			return true
		}

		matched = true

		if rec.Title == "" && ld.Name != "" {
			rec.Title = ld.Name
		}
		if rec.Year == nil && len(ld.DatePublished) >= 4 {
			if v, ok := ParseYear(ld.DatePublished[:4]); ok {
				rec.Year = dataset.IntPtr(v)
			}
		}
		if rec.DurationMin == nil && ld.Duration != "" {
			if v, ok := ParseDurationMinutes(ld.Duration); ok {
				rec.RawDuration = ld.Duration
				rec.DurationMin = dataset.IntPtr(v)
			}
		}
		if len(rec.Genres) == 0 {
			rec.Genres = dedupeStrings(genreList(ld.Genre))
		}
		if ld.AggregateRating != nil {
			if rec.Rating == nil {
				if v, err := ld.AggregateRating.RatingValue.Float64(); err == nil && v >= 0 && v <= 10 {
					rec.Rating = dataset.FloatPtr(v)
				}
			}
			if rec.Votes == nil {
				if v, err := ld.AggregateRating.RatingCount.Int64(); err == nil && v >= 0 {
					rec.Votes = dataset.IntPtr(int(v))
				}
			}
		}

		return false
	})

	return matched
}

// extractWithRegex salvages the minimum field set from raw markup. Last
// resort only; selector drift and JSON-LD omissions land here.
func extractWithRegex(html string, rec *dataset.Record) {
	if rec.Title == "" {
		if m := pageTitleRe.FindStringSubmatch(html); m != nil {
			rec.Title = strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
		}
	}
	if rec.Rating == nil {
		if m := pageRatingRe.FindStringSubmatch(html); m != nil {
			if v, ok := ParseRating(m[1]); ok {
				rec.Rating = dataset.FloatPtr(v)
			}
		}
	}
	if rec.Year == nil {
		if v, ok := ParseYear(html); ok {
			rec.Year = dataset.IntPtr(v)
		}
	}
	if rec.Votes == nil {
		if m := pageVotesRe.FindStringSubmatch(html); m != nil {
			if v, ok := ParseVotes(m[1]); ok && v > 0 {
				rec.Votes = dataset.IntPtr(v)
			}
		}
	}
	if rec.Metascore == nil {
		if m := pageMetascoreRe.FindStringSubmatch(html); m != nil {
			if v, ok := ParseMetascore(m[1]); ok {
				rec.Metascore = dataset.IntPtr(v)
			}
		}
	}
	if rec.DurationMin == nil {
		if m := pageDurationRe.FindStringSubmatch(html); m != nil {
			if v, ok := ParseDurationMinutes(m[1]); ok {
				rec.RawDuration = strings.TrimSpace(m[1])
				rec.DurationMin = dataset.IntPtr(v)
			}
		}
	}
}

// isTitleType accepts Movie, TVSeries, and TVEpisode blocks; @type may be a
// string or a list.
func isTitleType(t interface{}) bool {
	check := func(s string) bool {
		s = strings.ToLower(s)
		return s == "movie" || s == "tvseries" || s == "tvepisode"
	}
	switch v := t.(type) {
	case string:
		return check(v)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && check(s) {
				return true
			}
		}
	}
	return false
}

func genreList(g interface{}) []string {
	switch v := g.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if txt := strings.TrimSpace(doc.Find(sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
