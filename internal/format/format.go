// Package format resolves stored content-type identifiers to serializers that
// turn file bytes into datasets and back.
package format

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/importexport/internal/dataset"
)

// ErrUnknownFormat is returned by Resolve when no registered format matches.
var ErrUnknownFormat = errors.New("unknown format")

// Format is a serializer for one file type.
type Format interface {
	// ContentType is the identifier stored on jobs.
	ContentType() string
	Title() string
	Extension() string
	// IsBinary reports whether the payload is raw bytes rather than UTF-8 text.
	IsBinary() bool
	CanImport() bool
	CanExport() bool
	CreateDataset(data []byte) (*dataset.Dataset, error)
	ExportData(ds *dataset.Dataset) ([]byte, error)
}

// formats is the fixed, ordered set of supported serializers.
var formats = []Format{
	csvFormat{delimiter: ',', contentType: "text/csv", title: "csv", ext: "csv"},
	csvFormat{delimiter: '\t', contentType: "text/tab-separated-values", title: "tsv", ext: "tsv"},
	jsonFormat{},
	yamlFormat{},
	xlsxFormat{},
}

// Resolve returns the first format whose content type matches contentType.
func Resolve(contentType string) (Format, error) {
	for _, f := range formats {
		if f.ContentType() == contentType {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, contentType)
}

// Choice is a (content type, title) pair offered to operators.
type Choice struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
}

// ImportChoices lists the formats that can be uploaded.
func ImportChoices() []Choice {
	var out []Choice
	for _, f := range formats {
		if f.CanImport() {
			out = append(out, Choice{ContentType: f.ContentType(), Title: f.Title()})
		}
	}
	return out
}

// ExportChoices lists the formats exports can be written in.
func ExportChoices() []Choice {
	var out []Choice
	for _, f := range formats {
		if f.CanExport() {
			out = append(out, Choice{ContentType: f.ContentType(), Title: f.Title()})
		}
	}
	return out
}
