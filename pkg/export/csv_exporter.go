package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// Dataset is a titled table. Cells may hold several lines separated by "\n".
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// columns indexes the headers and rejects duplicates.
func (d Dataset) columns() (map[string]int, error) {
	if len(d.Headers) == 0 {
		return nil, fmt.Errorf("dataset %q has no headers", d.Title)
	}
	index := make(map[string]int, len(d.Headers))
	for i, h := range d.Headers {
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("dataset %q repeats header %q", d.Title, h)
		}
		index[h] = i
	}
	return index, nil
}

// CSVExporter writes one record per dataset row. The title is not part of the output.
type CSVExporter struct {
	// CRLF terminates records with \r\n for spreadsheet imports.
	CRLF bool
}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render fails when a row carries a key that is not a header.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	index, err := data.columns()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = e.CRLF
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for n, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for key, value := range row {
			i, ok := index[key]
			if !ok {
				return nil, fmt.Errorf("row %d: unknown column %q (have %v)", n+1, key, sortedKeys(index))
			}
			record[i] = value
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(index map[string]int) []string {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
