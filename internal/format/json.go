package format

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/JonMunkholm/importexport/internal/dataset"
)

// jsonFormat reads and writes a list of flat objects.
type jsonFormat struct{}

func (jsonFormat) ContentType() string { return "application/json" }
func (jsonFormat) Title() string       { return "json" }
func (jsonFormat) Extension() string   { return "json" }
func (jsonFormat) IsBinary() bool      { return false }
func (jsonFormat) CanImport() bool     { return true }
func (jsonFormat) CanExport() bool     { return true }

// CreateDataset uses the sorted union of object keys as headers; encoding/json
// does not preserve key order.
func (jsonFormat) CreateDataset(data []byte) (*dataset.Dataset, error) {
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	seen := make(map[string]bool)
	var headers []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	ds := dataset.New(headers...)
	for _, obj := range objects {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = stringify(obj[h])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func (jsonFormat) ExportData(ds *dataset.Dataset) ([]byte, error) {
	objects := make([]map[string]string, 0, ds.Len())
	for _, row := range ds.Rows {
		objects = append(objects, ds.Dict(row))
	}
	return json.Marshal(objects)
}

// stringify renders a decoded scalar as a cell value. Null becomes "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}
