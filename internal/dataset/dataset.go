// Package dataset holds the in-memory tabular form shared by the file
// formats and the resource mappings.
package dataset

import (
	"fmt"
	"strings"
)

// Dataset is a header row plus data rows. Rows may be shorter than Headers;
// missing trailing cells read as empty.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// New creates an empty dataset with the given headers.
func New(headers ...string) *Dataset {
	return &Dataset{Headers: headers}
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Append adds a row. Returns an error if the row is wider than the headers.
func (d *Dataset) Append(row []string) error {
	if len(d.Headers) > 0 && len(row) > len(d.Headers) {
		return fmt.Errorf("row has %d cells, dataset has %d headers", len(row), len(d.Headers))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// HeaderIndex maps lowercased, trimmed header names to column positions.
type HeaderIndex map[string]int

// Index builds a HeaderIndex for the dataset. The first occurrence of a
// duplicated header wins.
func (d *Dataset) Index() HeaderIndex {
	idx := make(HeaderIndex, len(d.Headers))
	for i, h := range d.Headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Cell returns the trimmed value of column name in row, or "" if the column
// or cell is missing.
func (idx HeaderIndex) Cell(row []string, name string) (string, bool) {
	pos, ok := idx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	if pos >= len(row) {
		return "", true
	}
	return strings.TrimSpace(row[pos]), true
}

// Dict returns row as a header->value map. Used by the record-oriented
// formats (JSON, YAML).
func (d *Dataset) Dict(row []string) map[string]string {
	m := make(map[string]string, len(d.Headers))
	for i, h := range d.Headers {
		if i < len(row) {
			m[h] = row[i]
		} else {
			m[h] = ""
		}
	}
	return m
}
