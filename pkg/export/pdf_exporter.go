package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins
	pdfRowHeight = 7.0
)

// PDFExporter renders a Document as landscape tables, one page per table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out each table on its own page with the document title and table title as headings.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	widths := columnWidths(doc)

	tables := doc.Tables
	if len(tables) == 0 {
		tables = []Table{{Title: "No sessions"}}
	}
	for _, table := range tables {
		pdf.AddPage()
		if doc.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 9, doc.Title, "", 1, "C", false, 0, "")
		}
		if table.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, table.Title, "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
		writeHeader(pdf, doc.Headers, widths)

		pdf.SetFont("Arial", "", 9)
		for i, row := range table.Rows {
			_, pageHeight := pdf.GetPageSize()
			_, _, _, bottom := pdf.GetMargins()
			if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
				pdf.AddPage()
				writeHeader(pdf, doc.Headers, widths)
				pdf.SetFont("Arial", "", 9)
			}
			fill := i%2 == 1
			pdf.SetFillColor(242, 242, 242)
			for c, cell := range row {
				pdf.CellFormat(widths[c], pdfRowHeight, cell, "1", 0, "", fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType is the MIME type of Render's output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file suffix used when storing Render's output.
func (e *PDFExporter) Extension() string { return "pdf" }

func writeHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(220, 226, 240)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// columnWidths splits the page width proportionally to the longest cell in each column.
func columnWidths(doc Document) []float64 {
	longest := make([]int, len(doc.Headers))
	for i, header := range doc.Headers {
		longest[i] = len(header)
	}
	for _, table := range doc.Tables {
		for _, row := range table.Rows {
			for i, cell := range row {
				if len(cell) > longest[i] {
					longest[i] = len(cell)
				}
			}
		}
	}
	total := 0
	for i := range longest {
		if longest[i] < 4 {
			longest[i] = 4
		}
		total += longest[i]
	}
	widths := make([]float64, len(longest))
	for i, n := range longest {
		widths[i] = pdfPageWidth * float64(n) / float64(total)
	}
	return widths
}
