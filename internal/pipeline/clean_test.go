// internal/pipeline/clean_test.go
package pipeline

import (
	"reflect"
	"testing"

	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
)

func testCleaningConfig() config.CleaningConfig {
	return config.CleaningConfig{
		MaxDurationMin: 600,
		ImputeFields:   []string{"metascore"},
	}
}

func movieRecord(url string) *dataset.Record {
	rec := dataset.NewRecord(url, dataset.CategoryMovie)
	rec.Title = "Title"
	rec.Rating = dataset.FloatPtr(8.0)
	rec.MarkStatus()
	return rec
}

func TestCleanParsesRawDuration(t *testing.T) {
	rec := movieRecord("https://www.imdb.com/title/tt0000001/")
	rec.RawDuration = "2h 30m"

	report := NewCleaner(testCleaningConfig(), nil).Clean([]*dataset.Record{rec})

	if rec.DurationMin == nil || *rec.DurationMin != 150 {
		t.Errorf("duration = %v, want 150", rec.DurationMin)
	}
	if report.DurationsParsed != 1 {
		t.Errorf("durations parsed = %d, want 1", report.DurationsParsed)
	}
}

func TestCleanDiscardsImplausibleDuration(t *testing.T) {
	rec := movieRecord("https://www.imdb.com/title/tt0000002/")
	rec.DurationMin = dataset.IntPtr(1500)

	report := NewCleaner(testCleaningConfig(), nil).Clean([]*dataset.Record{rec})

	if rec.DurationMin != nil {
		t.Errorf("duration = %v, want absent", *rec.DurationMin)
	}
	if report.DurationsDiscarded != 1 {
		t.Errorf("durations discarded = %d, want 1", report.DurationsDiscarded)
	}
}

func TestCleanNormalizesGenres(t *testing.T) {
	rec := movieRecord("https://www.imdb.com/title/tt0000003/")
	rec.Genres = []string{" drama ", "Drama", "CRIME", ""}

	NewCleaner(testCleaningConfig(), nil).Clean([]*dataset.Record{rec})

	want := []string{"Drama", "Crime"}
	if !reflect.DeepEqual(rec.Genres, want) {
		t.Errorf("genres = %v, want %v", rec.Genres, want)
	}
}

func TestCleanRoundsRating(t *testing.T) {
	rec := movieRecord("https://www.imdb.com/title/tt0000004/")
	rec.Rating = dataset.FloatPtr(9.20000001)

	NewCleaner(testCleaningConfig(), nil).Clean([]*dataset.Record{rec})

	if rec.Rating == nil || *rec.Rating != 9.2 {
		t.Errorf("rating = %v, want 9.2", rec.Rating)
	}
}

func TestCleanImputesPerCategoryMedian(t *testing.T) {
	var records []*dataset.Record

	// Movies with metascores 10, 20, 30 plus one missing.
	for i, ms := range []int{10, 20, 30} {
		rec := movieRecord(urlFor("movie", i))
		rec.Metascore = dataset.IntPtr(ms)
		records = append(records, rec)
	}
	missingMovie := movieRecord(urlFor("movie", 3))
	records = append(records, missingMovie)

	// A TV record with no metascore in a category with no observed values:
	// it must stay absent rather than borrow the movie median.
	tvRec := dataset.NewRecord(urlFor("tv", 0), dataset.CategoryTV)
	tvRec.Title = "Show"
	tvRec.Rating = dataset.FloatPtr(8.5)
	tvRec.MarkStatus()
	records = append(records, tvRec)

	report := NewCleaner(testCleaningConfig(), nil).Clean(records)

	if missingMovie.Metascore == nil || *missingMovie.Metascore != 20 {
		t.Errorf("imputed metascore = %v, want the movie median 20", missingMovie.Metascore)
	}
	if tvRec.Metascore != nil {
		t.Errorf("tv metascore = %v, want absent (no values in category)", *tvRec.Metascore)
	}
	if report.Imputed["metascore"] != 1 {
		t.Errorf("imputed count = %d, want 1", report.Imputed["metascore"])
	}
}

func TestCleanSkipsFailedRecords(t *testing.T) {
	failed := dataset.NewFailureRecord("https://www.imdb.com/title/tt0000005/", dataset.CategoryMovie, []string{"404"})
	failed.RawDuration = "2h"

	NewCleaner(testCleaningConfig(), nil).Clean([]*dataset.Record{failed})

	if failed.DurationMin != nil {
		t.Error("failed records must pass through untouched")
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	rec := movieRecord("https://www.imdb.com/title/tt0000006/")
	rec.RawDuration = "150 min"
	rec.Genres = []string{"drama", "crime"}
	rec.Metascore = dataset.IntPtr(80)

	cleaner := NewCleaner(testCleaningConfig(), nil)
	cleaner.Clean([]*dataset.Record{rec})
	first := rec.Clone()

	report := cleaner.Clean([]*dataset.Record{rec})

	if !reflect.DeepEqual(rec.Genres, first.Genres) {
		t.Errorf("second pass changed genres: %v vs %v", rec.Genres, first.Genres)
	}
	if *rec.DurationMin != *first.DurationMin {
		t.Errorf("second pass changed duration: %d vs %d", *rec.DurationMin, *first.DurationMin)
	}
	if report.GenresNormalized != 0 || report.Imputed["metascore"] != 0 {
		t.Errorf("second pass reported changes: %+v", report)
	}
}

func urlFor(kind string, i int) string {
	return "https://www.imdb.com/title/tt" + kind + string(rune('0'+i)) + "/"
}
