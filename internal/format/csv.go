package format

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/JonMunkholm/importexport/internal/dataset"
)

// csvFormat handles comma and tab separated files.
type csvFormat struct {
	delimiter   rune
	contentType string
	title       string
	ext         string
}

func (f csvFormat) ContentType() string { return f.contentType }
func (f csvFormat) Title() string       { return f.title }
func (f csvFormat) Extension() string   { return f.ext }
func (f csvFormat) IsBinary() bool      { return false }
func (f csvFormat) CanImport() bool     { return true }
func (f csvFormat) CanExport() bool     { return true }

// CreateDataset treats the first record as the header row.
func (f csvFormat) CreateDataset(data []byte) (*dataset.Dataset, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = f.delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.title, err)
	}

	ds := &dataset.Dataset{}
	if len(records) == 0 {
		return ds, nil
	}
	ds.Headers = records[0]
	for i, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		if err := ds.Append(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+2, err)
		}
	}
	return ds, nil
}

func (f csvFormat) ExportData(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = f.delimiter

	if err := w.Write(ds.Headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(ds.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if len(bytes.TrimSpace([]byte(v))) > 0 {
			return false
		}
	}
	return true
}
