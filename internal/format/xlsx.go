package format

import (
	"bytes"
	"fmt"

	"github.com/JonMunkholm/importexport/internal/dataset"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// xlsxFormat reads the first worksheet of a workbook and writes a single sheet.
type xlsxFormat struct{}

func (xlsxFormat) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (xlsxFormat) Title() string     { return "xlsx" }
func (xlsxFormat) Extension() string { return "xlsx" }
func (xlsxFormat) IsBinary() bool    { return true }
func (xlsxFormat) CanImport() bool   { return true }
func (xlsxFormat) CanExport() bool   { return true }

func (xlsxFormat) CreateDataset(data []byte) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &dataset.Dataset{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	ds := &dataset.Dataset{}
	if len(rows) == 0 {
		return ds, nil
	}
	ds.Headers = rows[0]
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		if len(row) > len(ds.Headers) {
			row = row[:len(ds.Headers)]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func (xlsxFormat) ExportData(ds *dataset.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	write := func(line int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		return f.SetSheetRow(xlsxSheet, cell, &values)
	}

	if err := write(1, ds.Headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range ds.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
