// internal/output/csv.go
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/ChartMiner/internal/dataset"
)

var csvHeader = []string{
	"url", "title", "category", "year", "rating", "votes", "metascore",
	"duration_min", "genres", "tier", "status", "flags", "errors",
}

// WriteCSV exports records as a flat table for spreadsheet work. Absent
// numeric fields become empty cells, never zeroes.
func WriteCSV(path string, records []*dataset.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", rec.URL, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return writeAtomic(path, buf.Bytes())
}

func csvRow(rec *dataset.Record) []string {
	return []string{
		rec.URL,
		rec.Title,
		string(rec.Category),
		intCell(rec.Year),
		floatCell(rec.Rating),
		intCell(rec.Votes),
		intCell(rec.Metascore),
		intCell(rec.DurationMin),
		strings.Join(rec.Genres, "|"),
		string(rec.Tier),
		string(rec.Status),
		strings.Join(rec.Flags, "|"),
		strings.Join(rec.Errors, "|"),
	}
}

func intCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}
