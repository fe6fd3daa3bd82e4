// internal/dataset/dataset.go
package dataset

import (
	"fmt"
	"sync"
)

// Dataset is an ordered-by-arrival collection of records keyed by canonical
// URL. Duplicate URLs are rejected at insert. The orchestrator appends to it
// concurrently, so all mutation goes through a mutex; autosave readers take a
// consistent snapshot rather than observing the live slice.
type Dataset struct {
	mu      sync.RWMutex
	records []*Record
	index   map[string]int
	frozen  bool
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{
		index: make(map[string]int),
	}
}

// Add appends a record in arrival order. It rejects duplicate URLs and
// additions after the dataset has been frozen.
func (d *Dataset) Add(r *Record) error {
	if r == nil || r.URL == "" {
		return fmt.Errorf("record must have a URL")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frozen {
		return fmt.Errorf("dataset is frozen")
	}
	if _, exists := d.index[r.URL]; exists {
		return fmt.Errorf("duplicate URL: %s", r.URL)
	}

	d.index[r.URL] = len(d.records)
	d.records = append(d.records, r)
	return nil
}

// Get returns the record for a URL, or nil if absent.
func (d *Dataset) Get(url string) *Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.index[url]
	if !ok {
		return nil
	}
	return d.records[i]
}

// Contains reports whether a URL is already present.
func (d *Dataset) Contains(url string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.index[url]
	return ok
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.records)
}

// Records returns the live record slice in arrival order. Callers must not
// append to it; single-threaded stages mutate record fields through it.
func (d *Dataset) Records() []*Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Record, len(d.records))
	copy(out, d.records)
	return out
}

// Snapshot returns a deep copy safe to serialize while workers keep
// appending to the original.
func (d *Dataset) Snapshot() []*Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Record, len(d.records))
	for i, r := range d.records {
		out[i] = r.Clone()
	}
	return out
}

// Freeze marks the dataset read-only for membership. Field mutation by the
// cleaning and anomaly stages remains allowed; Add does not.
func (d *Dataset) Freeze() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.frozen = true
}

// GroupByCategory partitions records by category, preserving input order
// within each group. The cleaning and anomaly stages share it for their
// per-category work.
func GroupByCategory(records []*Record) map[Category][]*Record {
	groups := make(map[Category][]*Record)
	for _, r := range records {
		groups[r.Category] = append(groups[r.Category], r)
	}
	return groups
}

// FromRecords builds a dataset from existing records, used when resuming
// from a checkpoint. Duplicates in the input are an error.
func FromRecords(records []*Record) (*Dataset, error) {
	d := New()
	for _, r := range records {
		if err := d.Add(r); err != nil {
			return nil, err
		}
	}
	return d, nil
}
