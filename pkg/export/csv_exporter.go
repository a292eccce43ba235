package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column names one roster column and how wide it should render in print.
type Column struct {
	Key   string
	Label string
	Width float64
}

// Roster is a titled table with a few leading "label: value" facts such as the class,
// subject and session date.
type Roster struct {
	Title   string
	Facts   [][2]string
	Columns []Column
	Rows    []map[string]string
}

func (r Roster) validate() error {
	if len(r.Columns) == 0 {
		return fmt.Errorf("roster requires at least one column")
	}
	return nil
}

// CSVWriter renders rosters as CSV. Facts are omitted so spreadsheets open cleanly.
type CSVWriter struct {
	// Comma overrides the field delimiter when non-zero.
	Comma rune
}

// NewCSVWriter builds a comma-separated writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// ContentType is the MIME type of Render output.
func (w *CSVWriter) ContentType() string { return "text/csv" }

// Extension is the file extension of Render output.
func (w *CSVWriter) Extension() string { return "csv" }

// Render produces CSV bytes with a label header row followed by one row per entry.
func (w *CSVWriter) Render(r Roster) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if w.Comma != 0 {
		writer.Comma = w.Comma
	}
	header := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		header[i] = col.Label
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.Rows {
		record := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			record[i] = row[col.Key]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
