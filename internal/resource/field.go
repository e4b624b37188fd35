package resource

// field.go converts raw cell values into the normalized strings stored on
// records.
//
// Cells arrive in whatever shape spreadsheets produce:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FieldType is the expected data type of a column.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldEnum    FieldType = "enum"
	FieldDate    FieldType = "date"
	FieldNumeric FieldType = "numeric"
	FieldBool    FieldType = "bool"
)

// Field maps one dataset column to one record attribute.
type Field struct {
	Column    string    `yaml:"column"`    // Header name in the file
	Attribute string    `yaml:"attribute"` // Record attribute; defaults to Column
	Type      FieldType `yaml:"type"`
	Required  bool      `yaml:"required"`
	Choices   []string  `yaml:"choices"` // Valid values for FieldEnum
}

// Attr returns the record attribute name for the field.
func (f Field) Attr() string {
	if f.Attribute != "" {
		return f.Attribute
	}
	return f.Column
}

// FieldError is a validation failure for a single cell.
type FieldError struct {
	Field   string
	Value   string
	Message string
}

func (e FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s %q", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// numericRegex matches integers, decimals, and scientific notation after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years more than this many years in the future go to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// Clean removes common spreadsheet artifacts from a cell value.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.TrimSpace(s)
}

// Convert validates raw against the field and returns the normalized value.
// Empty values are returned as "" and only rejected for required fields.
func (f Field) Convert(raw string) (string, error) {
	v := Clean(raw)
	if v == "" {
		if f.Required {
			return "", FieldError{Field: f.Column, Message: "required field is empty"}
		}
		return "", nil
	}

	switch f.Type {
	case FieldEnum:
		for _, c := range f.Choices {
			if strings.EqualFold(v, c) {
				return c, nil
			}
		}
		return "", FieldError{Field: f.Column, Value: v, Message: "invalid enum"}
	case FieldDate:
		t, ok := parseDate(v)
		if !ok {
			return "", FieldError{Field: f.Column, Value: v, Message: "invalid date"}
		}
		return t.Format("2006-01-02"), nil
	case FieldNumeric:
		n, ok := parseNumeric(v)
		if !ok {
			return "", FieldError{Field: f.Column, Value: v, Message: "invalid number"}
		}
		return n, nil
	case FieldBool:
		b, ok := parseBool(v)
		if !ok {
			return "", FieldError{Field: f.Column, Value: v, Message: "invalid bool"}
		}
		if b {
			return "true", nil
		}
		return "false", nil
	default:
		return v, nil
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric handles currency symbols, thousands separators, and the
// accounting format for negatives "(123.45)".
func parseNumeric(s string) (string, bool) {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return "", false
	}
	return s, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}
