package resource

// ImportType classifies what happened to one row.
type ImportType string

const (
	ImportNew     ImportType = "new"
	ImportUpdate  ImportType = "update"
	ImportSkip    ImportType = "skip"
	ImportError   ImportType = "error"
	ImportInvalid ImportType = "invalid"
)

// RowError is one error attached to a row.
type RowError struct {
	Error string
	Row   []string
}

// RowResult is the outcome of importing one dataset row.
type RowResult struct {
	Number     int // 1-based data row number
	Key        string
	ImportType ImportType
	Original   map[string]string // nil for new records
	Values     map[string]string
	Errors     []RowError
}

// Result accumulates the outcome of an import.
type Result struct {
	BaseErrors []string
	Rows       []RowResult
	Totals     map[ImportType]int
	TotalRows  int
}

func newResult(total int) *Result {
	return &Result{
		Totals:    make(map[ImportType]int),
		TotalRows: total,
	}
}

func (r *Result) add(row RowResult) {
	r.Rows = append(r.Rows, row)
	r.Totals[row.ImportType]++
}

// HasErrors reports whether any base or row error was recorded.
func (r *Result) HasErrors() bool {
	if len(r.BaseErrors) > 0 {
		return true
	}
	for _, row := range r.Rows {
		if len(row.Errors) > 0 {
			return true
		}
	}
	return false
}

// LineErrors pairs a row number with its errors.
type LineErrors struct {
	Line   int
	Errors []RowError
}

// RowErrors returns the rows that had errors, in row order.
func (r *Result) RowErrors() []LineErrors {
	var out []LineErrors
	for _, row := range r.Rows {
		if len(row.Errors) > 0 {
			out = append(out, LineErrors{Line: row.Number, Errors: row.Errors})
		}
	}
	return out
}
