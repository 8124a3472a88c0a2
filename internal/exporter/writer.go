// Package exporter produces the budget and calendar workbooks from
// reconciled timelines.
package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter abstracts workbook writing so tests can capture output without
// parsing xlsx.
type ExcelWriter interface {
	// AddSheet adds a sheet and makes it current. Names longer than the
	// xlsx 31-character limit are truncated.
	AddSheet(name string) error

	// WriteHeader writes a bold header row to the current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to the current sheet.
	WriteRow(row []interface{}) error

	// Row returns the 1-based row the next write lands on.
	Row() int

	// SetFormula places a formula into the given cell of the current sheet.
	SetFormula(col, row int, formula string) error

	// SetColWidth sets the width of columns from..to of the current sheet.
	SetColWidth(from, to int, width float64) error

	// Save writes the workbook to w.
	Save(w io.Writer) error

	// SaveToFile writes the workbook to disk.
	SaveToFile(path string) error

	// Close releases resources.
	Close() error
}

// ExcelizeWriter implements ExcelWriter using the excelize library.
type ExcelizeWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewExcelizeWriter creates a new workbook writer.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{
		file: excelize.NewFile(),
	}
}

func (w *ExcelizeWriter) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		// Rename the default sheet instead of leaving it dangling.
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename default sheet to %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

func (w *ExcelizeWriter) Row() int { return w.currentRow }

func (w *ExcelizeWriter) SetFormula(col, row int, formula string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellFormula(w.currentSheet, cell, formula)
}

func (w *ExcelizeWriter) SetColWidth(from, to int, width float64) error {
	start, err := excelize.ColumnNumberToName(from)
	if err != nil {
		return err
	}
	end, err := excelize.ColumnNumberToName(to)
	if err != nil {
		return err
	}
	return w.file.SetColWidth(w.currentSheet, start, end, width)
}

func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelizeWriter) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}
