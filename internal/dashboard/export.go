package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"taskdash/internal/model"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %s", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json; charset=utf-8"
	}
}

func exportColumns(cols []Column) []Column {
	return append([]Column{{Header: "ID", Accessor: model.FieldTaskID}}, DataColumns(cols)...)
}

// Export writes the table in the given format. Action columns are skipped
// and an ID column is prepended.
func Export(w io.Writer, format Format, title string, cols []Column, tasks []model.Task) error {
	cols = exportColumns(cols)
	switch format {
	case FormatJSON:
		rows := make([]map[string]string, 0, len(tasks))
		for _, t := range tasks {
			row := make(map[string]string, len(cols))
			for _, c := range cols {
				row[c.Accessor] = c.Cell(t)
			}
			rows = append(rows, row)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)

	case FormatCSV:
		cw := csv.NewWriter(w)
		header := make([]string, len(cols))
		for i, c := range cols {
			header[i] = c.Header
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, t := range tasks {
			rec := make([]string, len(cols))
			for i, c := range cols {
				rec[i] = c.Cell(t)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	case FormatPDF:
		return exportPDF(w, title, cols, tasks)

	default:
		return fmt.Errorf("unknown format %s", format)
	}
}

func exportPDF(w io.Writer, title string, cols []Column, tasks []model.Task) error {
	return pdfDocument(title, cols, tasks).Output(w)
}

// pdfDocument lays the table out on landscape A4. Text is translated to
// the cp1252 encoding of the core fonts.
func pdfDocument(title string, cols []Column, tasks []model.Task) *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, tr(title))
	pdf.Ln(12)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	idW := 15.0
	colW := (pageW - left - right - idW) / float64(len(cols)-1)
	width := func(i int) float64 {
		if i == 0 {
			return idW
		}
		return colW
	}

	pdf.SetFont("Arial", "B", 10)
	for i, c := range cols {
		pdf.CellFormat(width(i), 7, tr(c.Header), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, t := range tasks {
		for i, c := range cols {
			pdf.CellFormat(width(i), 6, tr(c.Cell(t)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf
}
