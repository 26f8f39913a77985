package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"hrleave/internal/domain/errs"
)

func sample() Table {
	return Table{
		Title:    "Leave Report",
		Subtitle: "Generated 2025-06-20",
		Header:   []string{"Employee", "Category", "Days"},
		Rows: [][]string{
			{"Rahim Uddin", "annual", "3"},
			{"Karim, Ahmed", "sick", "0.5"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatJSON, "CSV": FormatCSV, " pdf ": FormatPDF, "xlsx": FormatXLSX}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if FormatXLSX.Extension() != ".xlsx" || FormatPDF.ContentType() != "application/pdf" {
		t.Fatal("unexpected format metadata")
	}
}

func TestCSVQuotesFields(t *testing.T) {
	out, err := CSV(sample())
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 || records[2][0] != "Karim, Ahmed" {
		t.Fatalf("unexpected records %v", records)
	}
}

func TestPDFProducesDocument(t *testing.T) {
	out, err := PDF(sample())
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", out[:8])
	}

	many := sample()
	for i := 0; i < 200; i++ {
		many.Rows = append(many.Rows, []string{"A very long employee name that will not fit", "annual", "1"})
	}
	if _, err := PDF(many); err != nil {
		t.Fatalf("multi-page pdf: %v", err)
	}
}

func TestXLSXReadsBack(t *testing.T) {
	out, err := XLSX(sample())
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Report")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Employee" || rows[2][2] != "0.5" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestRenderRejectsJSON(t *testing.T) {
	if _, err := Render(FormatJSON, sample()); err == nil {
		t.Fatal("expected error for json")
	}
}
