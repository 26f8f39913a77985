// Package export encodes tabular reports as CSV, PDF or XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"hrleave/internal/domain/errs"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to JSON.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", errs.Validation("unsupported format %q", value)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Table is what every file encoder receives.
type Table struct {
	Title    string
	Subtitle string
	Header   []string
	Rows     [][]string
}

// Render encodes t in a file format. JSON is left to the caller.
func Render(f Format, t Table) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(t)
	case FormatPDF:
		return PDF(t)
	case FormatXLSX:
		return XLSX(t)
	}
	return nil, fmt.Errorf("render: format %q has no file encoder", f)
}

func CSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const pageWidth = 277.0

// PDF lays the table out on landscape A4 pages with equal column widths.
func PDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pageWidth, 10, tr(t.Title), "", 1, "C", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(pageWidth, 6, tr(t.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	width := pageWidth
	if len(t.Header) > 0 {
		width = pageWidth / float64(len(t.Header))
	}
	writeHeader := func() {
		pdf.SetFont("Arial", "B", 7)
		pdf.SetFillColor(200, 200, 200)
		for _, h := range t.Header {
			pdf.CellFormat(width, 7, fit(pdf, tr(h), width), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}
	writeHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, row := range t.Rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			writeHeader()
		}
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		for _, cell := range row {
			pdf.CellFormat(width, 6, fit(pdf, tr(cell), width), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Rows) == 0 {
		pdf.CellFormat(pageWidth, 8, "No records", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit shortens s until it fits a cell of the given width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"..") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}

func XLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
	}
	if len(t.Header) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Header))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
