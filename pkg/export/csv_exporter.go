package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is one titled block of rows, for example the week of a single room.
type Table struct {
	Title string
	Rows  [][]string
}

// Document is the renderer-neutral content of an export. Every row carries one cell per header.
type Document struct {
	Title   string
	Headers []string
	Tables  []Table
}

func (d Document) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	for _, table := range d.Tables {
		for i, row := range table.Rows {
			if len(row) != len(d.Headers) {
				return fmt.Errorf("table %q row %d has %d cells, want %d", table.Title, i, len(row), len(d.Headers))
			}
		}
	}
	return nil
}

// CSVExporter flattens every table of a Document under a single header row.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(doc.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, table := range doc.Tables {
		if err := writer.WriteAll(table.Rows); err != nil {
			return nil, fmt.Errorf("write csv rows for %s: %w", table.Title, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType is the MIME type of Render's output.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Extension is the file suffix used when storing Render's output.
func (e *CSVExporter) Extension() string { return "csv" }
