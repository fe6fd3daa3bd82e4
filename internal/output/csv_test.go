// internal/output/csv_test.go
package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/ChartMiner/internal/dataset"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.csv")

	rec := dataset.NewRecord("https://www.imdb.com/title/tt0000001/", dataset.CategoryMovie)
	rec.Title = "First"
	rec.Rating = dataset.FloatPtr(8.7)
	rec.DurationMin = dataset.IntPtr(142)
	rec.Genres = []string{"Drama", "Crime"}
	rec.MarkStatus()

	if err := WriteCSV(path, []*dataset.Record{rec}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one record", len(rows))
	}

	header, row := rows[0], rows[1]
	cell := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %q missing from header %v", name, header)
		return ""
	}

	if cell("title") != "First" {
		t.Errorf("title cell = %q", cell("title"))
	}
	if cell("rating") != "8.7" {
		t.Errorf("rating cell = %q", cell("rating"))
	}
	if cell("duration_min") != "142" {
		t.Errorf("duration cell = %q", cell("duration_min"))
	}
	if cell("genres") != "Drama|Crime" {
		t.Errorf("genres cell = %q", cell("genres"))
	}
	// Absent numeric fields export as empty cells, not zeroes.
	if cell("votes") != "" {
		t.Errorf("absent votes cell = %q, want empty", cell("votes"))
	}
	if cell("year") != "" {
		t.Errorf("absent year cell = %q, want empty", cell("year"))
	}
}

func TestWriteCSVFailureRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.csv")
	failed := dataset.NewFailureRecord("https://www.imdb.com/title/tt0000002/", dataset.CategoryTV,
		[]string{"render: browser crashed", "http: HTTP 503"})

	if err := WriteCSV(path, []*dataset.Record{failed}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "render: browser crashed|http: HTTP 503") {
		t.Errorf("failure reasons missing from export:\n%s", data)
	}
}
