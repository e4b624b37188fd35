package format

import (
	"fmt"

	"github.com/JonMunkholm/importexport/internal/dataset"
	"gopkg.in/yaml.v3"
)

// yamlFormat reads and writes a sequence of mappings. Working on yaml.Node
// keeps the column order of the first document.
type yamlFormat struct{}

func (yamlFormat) ContentType() string { return "text/yaml" }
func (yamlFormat) Title() string       { return "yaml" }
func (yamlFormat) Extension() string   { return "yaml" }
func (yamlFormat) IsBinary() bool      { return false }
func (yamlFormat) CanImport() bool     { return true }
func (yamlFormat) CanExport() bool     { return true }

func (yamlFormat) CreateDataset(data []byte) (*dataset.Dataset, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	ds := &dataset.Dataset{}
	if len(doc.Content) == 0 {
		return ds, nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parse yaml: expected a list of mappings, got %s", kindName(seq.Kind))
	}

	pos := make(map[string]int)
	var items []map[string]string
	for i, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("parse yaml: item %d is not a mapping", i+1)
		}
		values := make(map[string]string, len(item.Content)/2)
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := item.Content[j].Value
			if _, ok := pos[key]; !ok {
				pos[key] = len(ds.Headers)
				ds.Headers = append(ds.Headers, key)
			}
			if item.Content[j+1].ShortTag() != "!!null" {
				values[key] = item.Content[j+1].Value
			}
		}
		items = append(items, values)
	}

	for _, values := range items {
		row := make([]string, len(ds.Headers))
		for k, v := range values {
			row[pos[k]] = v
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func (yamlFormat) ExportData(ds *dataset.Dataset) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range ds.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, h := range ds.Headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: h},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
			)
		}
		seq.Content = append(seq.Content, m)
	}
	return yaml.Marshal(seq)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
