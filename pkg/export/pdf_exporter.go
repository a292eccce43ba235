package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const printableWidth = 190.0

// PDFWriter renders rosters as a printable A4 sign-off sheet.
type PDFWriter struct{}

// NewPDFWriter constructs a PDF writer.
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{}
}

// ContentType is the MIME type of Render output.
func (w *PDFWriter) ContentType() string { return "application/pdf" }

// Extension is the file extension of Render output.
func (w *PDFWriter) Extension() string { return "pdf" }

// Render lays out the title, the facts block, the table and a page footer.
func (w *PDFWriter) Render(r Roster) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if r.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, r.Title, "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}
	if len(r.Facts) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, fact := range r.Facts {
			pdf.CellFormat(35, 6, fact[0]+":", "", 0, "", false, 0, "")
			pdf.CellFormat(0, 6, fact[1], "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	widths := columnWidths(r.Columns)
	drawHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range r.Columns {
			pdf.CellFormat(widths[i], 8, col.Label, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	drawHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range r.Rows {
		if pdf.GetY()+7 > pageHeight-bottom-12 {
			pdf.AddPage()
			drawHeader()
		}
		for i, col := range r.Columns {
			pdf.CellFormat(widths[i], 7, row[col.Key], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths honours explicit widths and shares the remaining space evenly.
func columnWidths(cols []Column) []float64 {
	widths := make([]float64, len(cols))
	fixed, flexible := 0.0, 0
	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			fixed += col.Width
		} else {
			flexible++
		}
	}
	if flexible == 0 {
		return widths
	}
	share := (printableWidth - fixed) / float64(flexible)
	if share < 15 {
		share = 15
	}
	for i := range widths {
		if widths[i] == 0 {
			widths[i] = share
		}
	}
	return widths
}
