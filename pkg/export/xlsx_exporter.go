package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	creator string
}

// NewXLSXExporter constructs an XLSX exporter. creator is stamped into document properties.
func NewXLSXExporter(creator string) *XLSXExporter {
	return &XLSXExporter{creator: creator}
}

// ContentType reports the MIME type of rendered output.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension reports the file extension of rendered output.
func (e *XLSXExporter) Extension() string {
	return "xlsx"
}

// Render writes headers on row one, one row per record and the footer last.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	if data.Title != "" && len(data.Title) <= 31 {
		sheet = data.Title
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	if e.creator != "" {
		_ = f.SetDocProps(&excelize.DocProperties{Creator: e.creator, Title: data.Title})
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, bold)

	rowIdx := 2
	writeRow := func(row map[string]string) error {
		for colIdx, value := range data.record(row) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
		rowIdx++
		return nil
	}
	for _, row := range data.Rows {
		if err := writeRow(row); err != nil {
			return nil, err
		}
	}
	if len(data.Footer) > 0 {
		footerRow := rowIdx
		if err := writeRow(data.Footer); err != nil {
			return nil, err
		}
		first, _ := excelize.CoordinatesToCellName(1, footerRow)
		end, _ := excelize.CoordinatesToCellName(len(data.Headers), footerRow)
		_ = f.SetCellStyle(sheet, first, end, bold)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
