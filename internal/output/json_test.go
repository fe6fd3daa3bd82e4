// internal/output/json_test.go
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/ChartMiner/internal/dataset"
)

func sampleRecords() []*dataset.Record {
	ok := dataset.NewRecord("https://www.imdb.com/title/tt0000001/", dataset.CategoryMovie)
	ok.Title = "First"
	ok.Rating = dataset.FloatPtr(8.7)
	ok.MarkStatus()

	failed := dataset.NewFailureRecord("https://www.imdb.com/title/tt0000002/", dataset.CategoryMovie,
		[]string{"http: HTTP 404"})

	return []*dataset.Record{ok, failed}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles_final.json")

	records := sampleRecords()
	payload := &Payload{
		Summary: BuildSummary("top-titles", records, nil, nil, nil),
		Records: records,
	}

	if err := WriteJSON(path, payload); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}

	var got Payload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	if got.Summary == nil || got.Summary.Total != 2 {
		t.Errorf("summary total = %+v, want 2", got.Summary)
	}
	if got.Summary.ByStatus["ok"]+got.Summary.ByStatus["partial"] != 1 || got.Summary.ByStatus["failed"] != 1 {
		t.Errorf("by_status = %v", got.Summary.ByStatus)
	}
	if got.Summary.FailureReasons["http: HTTP 404"] != 1 {
		t.Errorf("failure_reasons = %v", got.Summary.FailureReasons)
	}
	if len(got.Records) != 2 {
		t.Fatalf("records = %d, want 2 (failures included)", len(got.Records))
	}

	// Absent fields must round-trip as null, never zero.
	if got.Records[0].Votes != nil {
		t.Errorf("absent votes decoded as %v", *got.Records[0].Votes)
	}
	if got.Records[1].Status != dataset.StatusFailed || len(got.Records[1].Errors) == 0 {
		t.Errorf("failure record lost its shape: %+v", got.Records[1])
	}
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteJSON(path, &Payload{Summary: &Summary{}, Records: nil}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the export", len(entries))
	}
}

func TestWriteJSONCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.json")

	if err := WriteJSON(path, &Payload{Summary: &Summary{}}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export missing: %v", err)
	}
}

func TestWriteJSONRejectsEmptyPath(t *testing.T) {
	if err := WriteJSON("", &Payload{}); err == nil {
		t.Error("expected error for empty path")
	}
}
