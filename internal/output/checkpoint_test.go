// internal/output/checkpoint_test.go
package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := NewCheckpointer(path, "top-titles", nil)

	records := sampleRecords()
	if err := cp.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := cp.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != len(records) {
		t.Fatalf("loaded %d records, want %d", loaded.Len(), len(records))
	}
	for _, rec := range records {
		if !loaded.Contains(rec.URL) {
			t.Errorf("checkpoint lost %s", rec.URL)
		}
	}
}

func TestCheckpointLoadMissingFile(t *testing.T) {
	cp := NewCheckpointer(filepath.Join(t.TempDir(), "absent.json"), "run", nil)
	ds, err := cp.Load()
	if err != nil {
		t.Fatalf("missing checkpoint must not error: %v", err)
	}
	if ds != nil {
		t.Error("missing checkpoint must load as nil, meaning a fresh start")
	}
}

func TestCheckpointLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	cp := NewCheckpointer(path, "run", nil)
	if _, err := cp.Load(); err == nil {
		t.Error("corrupt checkpoint must be reported, not silently ignored")
	}
}

func TestCheckpointDisabledPath(t *testing.T) {
	cp := NewCheckpointer("", "run", nil)
	if err := cp.Save(sampleRecords()); err != nil {
		t.Errorf("disabled checkpointer must be a no-op, got %v", err)
	}
	if ds, err := cp.Load(); err != nil || ds != nil {
		t.Errorf("disabled checkpointer Load = (%v, %v), want (nil, nil)", ds, err)
	}
}

func TestCheckpointOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := NewCheckpointer(path, "run", nil)

	first := sampleRecords()[:1]
	if err := cp.Save(first); err != nil {
		t.Fatal(err)
	}
	second := sampleRecords()
	if err := cp.Save(second); err != nil {
		t.Fatal(err)
	}

	loaded, err := cp.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("loaded %d records after overwrite, want 2", loaded.Len())
	}
}
