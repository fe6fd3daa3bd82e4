// Package output persists the final dataset and the autosave checkpoints.
package output

import (
	"time"

	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/pipeline"
	"github.com/valpere/ChartMiner/internal/scraper"
)

// Summary is the run-level report embedded in the final export.
type Summary struct {
	Name        string         `json:"name,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Total       int            `json:"total"`
	ByCategory  map[string]int `json:"by_category"`
	ByStatus    map[string]int `json:"by_status"`
	// FailureReasons tallies the per-tier diagnostics carried by failed
	// records, so a run's dominant failure mode is visible without scanning
	// the record list.
	FailureReasons map[string]int          `json:"failure_reasons,omitempty"`
	Fetch          *scraper.FetchSummary   `json:"fetch,omitempty"`
	Cleaning       *pipeline.CleanReport   `json:"cleaning,omitempty"`
	Anomalies      *pipeline.AnomalyReport `json:"anomalies,omitempty"`
}

// Payload is the shape of both the final export and the checkpoint file:
// the summary first, then every record including failures.
type Payload struct {
	Summary *Summary          `json:"summary"`
	Records []*dataset.Record `json:"records"`
}

// BuildSummary derives the aggregate counts from the records and attaches
// the per-stage reports.
func BuildSummary(name string, records []*dataset.Record, fetch *scraper.FetchSummary, cleaning *pipeline.CleanReport, anomalies *pipeline.AnomalyReport) *Summary {
	s := &Summary{
		Name:        name,
		GeneratedAt: time.Now().UTC(),
		Total:       len(records),
		ByCategory:  make(map[string]int),
		ByStatus:    make(map[string]int),
		Fetch:       fetch,
		Cleaning:    cleaning,
		Anomalies:   anomalies,
	}
	for _, rec := range records {
		s.ByCategory[string(rec.Category)]++
		s.ByStatus[string(rec.Status)]++
		if rec.Status == dataset.StatusFailed {
			for _, reason := range rec.Errors {
				if s.FailureReasons == nil {
					s.FailureReasons = make(map[string]int)
				}
				s.FailureReasons[reason]++
			}
		}
	}
	return s
}
