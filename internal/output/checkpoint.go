// internal/output/checkpoint.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/utils"
)

// Checkpointer persists fetch progress so an interrupted run can resume.
// Checkpoints use the same payload shape as the final export and the same
// atomic write, so a partially written checkpoint can never be loaded.
type Checkpointer struct {
	path   string
	name   string
	logger utils.Logger

	mu sync.Mutex // one write at a time; workers may race on the boundary
}

// NewCheckpointer targets the given file. An empty path disables writes.
func NewCheckpointer(path, name string, logger utils.Logger) *Checkpointer {
	if logger == nil {
		logger = utils.NewComponentLogger("checkpoint")
	}
	return &Checkpointer{path: path, name: name, logger: logger}
}

// Save writes a snapshot of the records collected so far.
func (c *Checkpointer) Save(records []*dataset.Record) error {
	if c.path == "" {
		return nil
	}

	payload := &Payload{
		Summary: &Summary{
			Name:        c.name,
			GeneratedAt: time.Now().UTC(),
			Total:       len(records),
			ByCategory:  countBy(records, func(r *dataset.Record) string { return string(r.Category) }),
			ByStatus:    countBy(records, func(r *dataset.Record) string { return string(r.Status) }),
		},
		Records: records,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteJSON(c.path, payload)
}

// Load reads a checkpoint back into a dataset. A missing file is not an
// error; it just means a fresh start.
func (c *Checkpointer) Load() (*dataset.Dataset, error) {
	if c.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("checkpoint is corrupt: %w", err)
	}

	ds, err := dataset.FromRecords(payload.Records)
	if err != nil {
		return nil, fmt.Errorf("checkpoint contains invalid records: %w", err)
	}

	c.logger.Infof("resumed %d records from %s", ds.Len(), c.path)
	return ds, nil
}

func countBy(records []*dataset.Record, key func(*dataset.Record) string) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[key(r)]++
	}
	return out
}
