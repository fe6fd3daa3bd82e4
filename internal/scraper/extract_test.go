// internal/scraper/extract_test.go
package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ChartMiner/internal/dataset"
)

const samplePage = `<!DOCTYPE html>
<html><body>
<h1>The Shawshank Redemption</h1>
<div data-testid="hero-rating-bar__aggregate-rating__score"><span>9.3</span><span>/10</span></div>
<a href="/title/tt0111161/releaseinfo">1994</a>
<span class="metacritic-score-box">82</span>
<span itemprop="ratingCount">2,954,212</span>
<ul><li data-testid="title-techspec_runtime"><div>2h 22m</div></li></ul>
<div data-testid="genres"><a>Drama</a><a>Crime</a><a>Drama</a></div>
</body></html>`

func TestExtractFromDocument(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(samplePage))
	if err != nil {
		t.Fatalf("failed to parse sample page: %v", err)
	}

	rec := dataset.NewRecord("https://www.imdb.com/title/tt0111161/", dataset.CategoryMovie)
	extractFromDocument(doc, rec)

	if rec.Title != "The Shawshank Redemption" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Rating == nil || *rec.Rating != 9.3 {
		t.Errorf("rating = %v, want 9.3", rec.Rating)
	}
	if rec.Year == nil || *rec.Year != 1994 {
		t.Errorf("year = %v, want 1994", rec.Year)
	}
	if rec.Metascore == nil || *rec.Metascore != 82 {
		t.Errorf("metascore = %v, want 82", rec.Metascore)
	}
	if rec.Votes == nil || *rec.Votes != 2954212 {
		t.Errorf("votes = %v, want 2954212", rec.Votes)
	}
	if rec.DurationMin == nil || *rec.DurationMin != 142 {
		t.Errorf("duration = %v, want 142", rec.DurationMin)
	}
	if len(rec.Genres) != 2 || rec.Genres[0] != "Drama" || rec.Genres[1] != "Crime" {
		t.Errorf("genres = %v, want deduplicated [Drama Crime]", rec.Genres)
	}
}

// Pages missing the techspec block fall back to the hero metadata list,
// where the runtime sits behind year and certification items.
const heroMetadataPage = `<!DOCTYPE html>
<html><body>
<h1>Inception</h1>
<ul data-testid="hero-title-block__metadata">
<li>2010</li>
<li>PG-13</li>
<li>2h 28m</li>
</ul>
</body></html>`

func TestExtractDurationFromHeroMetadata(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(heroMetadataPage))
	if err != nil {
		t.Fatalf("failed to parse sample page: %v", err)
	}

	rec := dataset.NewRecord("https://www.imdb.com/title/tt1375666/", dataset.CategoryMovie)
	extractFromDocument(doc, rec)

	// Year and certification items precede the runtime; neither may be read
	// as a duration.
	if rec.DurationMin == nil || *rec.DurationMin != 148 {
		t.Errorf("duration = %v, want 148", rec.DurationMin)
	}
	if rec.RawDuration != "2h 28m" {
		t.Errorf("raw duration = %q, want the runtime item", rec.RawDuration)
	}
}

func TestExtractDurationAbsentWithoutRuntimeItem(t *testing.T) {
	page := `<html><body>
	<h1>Inception</h1>
	<ul data-testid="hero-title-block__metadata"><li>2010</li><li>PG-13</li></ul>
	</body></html>`

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(page))
	rec := dataset.NewRecord("https://www.imdb.com/title/tt1375666/", dataset.CategoryMovie)
	extractFromDocument(doc, rec)

	if rec.DurationMin != nil {
		t.Errorf("duration fabricated from unit-less metadata: %v", *rec.DurationMin)
	}
	if rec.RawDuration != "" {
		t.Errorf("raw duration = %q, want empty", rec.RawDuration)
	}
}

const jsonLDPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{"@type":"VideoObject","name":"Official Trailer","duration":"PT2M30S"}
</script>
<script type="application/ld+json">
{
  "@type": "Movie",
  "name": "The Godfather",
  "genre": ["Crime", "Drama"],
  "duration": "PT2H55M",
  "datePublished": "1972-03-24",
  "aggregateRating": {"ratingValue": 9.2, "ratingCount": 2100000}
}
</script>
</head><body><h1>ignored</h1></body></html>`

func TestExtractFromJSONLD(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(jsonLDPage))
	if err != nil {
		t.Fatalf("failed to parse sample page: %v", err)
	}

	rec := dataset.NewRecord("https://www.imdb.com/title/tt0068646/", dataset.CategoryMovie)
	if !extractFromJSONLD(doc, rec) {
		t.Fatal("expected a usable structured-data block")
	}

	if rec.Title != "The Godfather" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Rating == nil || *rec.Rating != 9.2 {
		t.Errorf("rating = %v, want 9.2", rec.Rating)
	}
	if rec.Votes == nil || *rec.Votes != 2100000 {
		t.Errorf("votes = %v, want 2100000", rec.Votes)
	}
	if rec.Year == nil || *rec.Year != 1972 {
		t.Errorf("year = %v, want 1972", rec.Year)
	}
	// The trailer's PT2M30S must not shadow the feature runtime.
	if rec.DurationMin == nil || *rec.DurationMin != 175 {
		t.Errorf("duration = %v, want 175", rec.DurationMin)
	}
	if len(rec.Genres) != 2 {
		t.Errorf("genres = %v", rec.Genres)
	}
}

func TestExtractFromJSONLDNoTitleBlock(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type":"BreadcrumbList"}
	</script></head><body></body></html>`

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(page))
	rec := dataset.NewRecord("https://www.imdb.com/title/tt0000000/", dataset.CategoryMovie)
	if extractFromJSONLD(doc, rec) {
		t.Error("non-title blocks must not count as a match")
	}
}

func TestExtractWithRegex(t *testing.T) {
	html := `<html><body>
	<h1>12 <em>Angry</em> Men</h1>
	<p>Released 1957. Rated 9.0/10 from 896,012 ratings. Metascore 97. Runtime 96 min.</p>
	</body></html>`

	rec := dataset.NewRecord("https://www.imdb.com/title/tt0050083/", dataset.CategoryMovie)
	extractWithRegex(html, rec)

	if rec.Title != "12 Angry Men" {
		t.Errorf("title = %q, want tag-stripped heading", rec.Title)
	}
	if rec.Rating == nil || *rec.Rating != 9.0 {
		t.Errorf("rating = %v, want 9.0", rec.Rating)
	}
	if rec.Year == nil || *rec.Year != 1957 {
		t.Errorf("year = %v, want 1957", rec.Year)
	}
	if rec.Votes == nil || *rec.Votes != 896012 {
		t.Errorf("votes = %v, want 896012", rec.Votes)
	}
	if rec.Metascore == nil || *rec.Metascore != 97 {
		t.Errorf("metascore = %v, want 97", rec.Metascore)
	}
	if rec.DurationMin == nil || *rec.DurationMin != 96 {
		t.Errorf("duration = %v, want 96", rec.DurationMin)
	}
}
