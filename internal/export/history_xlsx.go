// Package export renders discharge history as a spreadsheet.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

const historySheet = "History"

// HistoryHeader is the column order of the exported sheet.
var HistoryHeader = []string{"Completed At", "Patient", "Body Area", "Note", "Treatments", "Completed"}

var historyWidths = []float64{20, 16, 18, 30, 60, 12}

// HistoryXLSX renders records (already filtered and ordered) into an XLSX
// workbook.  Times are written in loc.
func HistoryXLSX(records []model.HistoryRecord, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()

	index, err := f.NewSheet(historySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range HistoryHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(historySheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(historySheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(historySheet, name, name, historyWidths[col]); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.CompletedAt.In(loc).Format("2006-01-02 15:04"),
			rec.PatientName,
			rec.BodyArea,
			rec.Note,
			treatmentSummary(rec.Treatments),
			completedCount(rec.Treatments),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(historySheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// treatmentSummary renders "ICT(DONE), CUPPING wet(SKIPPED)".
func treatmentSummary(ts []model.TreatmentSnapshot) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		label := string(t.Type)
		if t.SubOption != "" {
			label += " " + t.SubOption
		}
		if t.IsWet {
			label += " wet"
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", label, t.Status))
	}
	return strings.Join(parts, ", ")
}

func completedCount(ts []model.TreatmentSnapshot) string {
	done := 0
	for _, t := range ts {
		if t.Status == model.StatusDone {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(ts))
}
