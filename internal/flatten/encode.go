package flatten

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"jsonpress/internal/services"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Encode serializes the table in the requested format.
func Encode(t *Table, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return EncodeCSV(t)
	case FormatXLSX:
		return EncodeXLSX(t)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "flatten", "encode",
			fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

// Extension returns the file extension for a format, without the dot.
func Extension(format string) string {
	if format == FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// EncodeCSV writes the header row followed by one line per row. Null and
// absent cells render as empty fields.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(t.Columns); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "write csv header", err)
	}
	line := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			line[i] = row.Cell(col).Encode()
		}
		if err := cw.Write(line); err != nil {
			return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "write csv row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "flush csv", err)
	}
	return buf.Bytes(), nil
}

const xlsxSheet = "Records"

// EncodeXLSX builds a single-sheet workbook with the header in row one.
func EncodeXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "rename sheet", err)
	}
	for i, col := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "header cell name", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, col); err != nil {
			return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "set header cell", err)
		}
	}
	for r, row := range t.Rows {
		for i, col := range t.Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "cell name", err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, row.Cell(col).Encode()); err != nil {
				return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "set cell", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "flatten", "encode", "write workbook", err)
	}
	return buf.Bytes(), nil
}
