package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a tabular payload ready for export.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// CSVExporter renders a dataset into CSV bytes.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes headers followed by rows.
func (e *CSVExporter) Export(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(ds.Headers) > 0 {
		if err := w.Write(ds.Headers); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	for i, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) ContentType() string {
	return "text/csv"
}

func (e *CSVExporter) FileExtension() string {
	return "csv"
}
