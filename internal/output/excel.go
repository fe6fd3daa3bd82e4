// internal/output/excel.go
package output

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/ChartMiner/internal/dataset"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

// WriteExcel exports an xlsx workbook with one sheet of records and one of
// run-level counts. Cell types are preserved so numeric columns sort and
// filter correctly.
func WriteExcel(path string, payload *Payload) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", recordsSheet)
	if err := writeRecordsSheet(f, payload.Records); err != nil {
		return err
	}

	if payload.Summary != nil {
		if _, err := f.NewSheet(summarySheet); err != nil {
			return fmt.Errorf("failed to create summary sheet: %w", err)
		}
		if err := writeSummarySheet(f, payload.Summary); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRecordsSheet(f *excelize.File, records []*dataset.Record) error {
	for col, name := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(recordsSheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, rec := range records {
		values := []interface{}{
			rec.URL,
			rec.Title,
			string(rec.Category),
			intValue(rec.Year),
			floatValue(rec.Rating),
			intValue(rec.Votes),
			intValue(rec.Metascore),
			intValue(rec.DurationMin),
			strings.Join(rec.Genres, "|"),
			string(rec.Tier),
			string(rec.Status),
			strings.Join(rec.Flags, "|"),
			strings.Join(rec.Errors, "|"),
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(recordsSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s *Summary) error {
	rows := [][]interface{}{
		{"generated_at", s.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"total", s.Total},
	}
	for cat, n := range s.ByCategory {
		rows = append(rows, []interface{}{"category:" + cat, n})
	}
	for status, n := range s.ByStatus {
		rows = append(rows, []interface{}{"status:" + status, n})
	}
	if s.Fetch != nil {
		rows = append(rows,
			[]interface{}{"attempted", s.Fetch.Attempted},
			[]interface{}{"succeeded", s.Fetch.Succeeded},
			[]interface{}{"failed", s.Fetch.Failed},
			[]interface{}{"retries", s.Fetch.Retries},
		)
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}
		}
	}
	return nil
}

func intValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
