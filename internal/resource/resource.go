// Package resource maps dataset columns to target model records and runs
// row-by-row imports and exports against a RecordStore.
package resource

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/JonMunkholm/importexport/internal/dataset"
)

// ErrRowAborted is returned by ImportData when RaiseErrors is set and a row fails.
var ErrRowAborted = errors.New("import aborted on row error")

// ContextCheckInterval is how often (in rows) the import checks for cancellation.
var ContextCheckInterval = 100

// Operation is a write a resource may perform on the target model.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// Resource is the column/attribute mapping for one target model.
type Resource struct {
	Name          string      `yaml:"name"`
	KeyField      string      `yaml:"key"` // Column holding the record identity
	Fields        []Field     `yaml:"fields"`
	SkipUnchanged bool        `yaml:"skip_unchanged"`
	Operations    []Operation `yaml:"operations"` // Empty allows all
}

// ImportHooks is called by ImportData before each row. Returning an error
// aborts the import.
type ImportHooks interface {
	BeforeImportRow(ctx context.Context, rowNumber, total int) error
}

// ExportHooks is called by Export before each record is rendered.
type ExportHooks interface {
	BeforeExportRow(ctx context.Context, rec Record) error
}

// ImportOptions controls a single ImportData call.
type ImportOptions struct {
	DryRun      bool
	RaiseErrors bool
	Hooks       ImportHooks
}

// Allows reports whether op is permitted.
func (r *Resource) Allows(op Operation) bool {
	if len(r.Operations) == 0 {
		return true
	}
	for _, o := range r.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Headers returns the column names in field order.
func (r *Resource) Headers() []string {
	headers := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		headers[i] = f.Column
	}
	return headers
}

// Validate checks the mapping itself. Used when loading configuration.
func (r *Resource) Validate() error {
	if r.KeyField == "" {
		return fmt.Errorf("resource %q: key is required", r.Name)
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("resource %q: at least one field is required", r.Name)
	}
	hasKey := false
	for _, f := range r.Fields {
		if f.Column == "" {
			return fmt.Errorf("resource %q: field with empty column", r.Name)
		}
		if f.Type == FieldEnum && len(f.Choices) == 0 {
			return fmt.Errorf("resource %q: enum field %q has no choices", r.Name, f.Column)
		}
		if strings.EqualFold(f.Column, r.KeyField) {
			hasKey = true
		}
	}
	if !hasKey {
		return fmt.Errorf("resource %q: key %q is not one of its fields", r.Name, r.KeyField)
	}
	for _, op := range r.Operations {
		if op != OpCreate && op != OpUpdate {
			return fmt.Errorf("resource %q: unknown operation %q", r.Name, op)
		}
	}
	return nil
}

// ImportData imports every row of ds into model inside one transaction.
//
// Dataset-level problems (missing columns) become base errors and no rows
// are processed. Row problems are collected on the result. The transaction
// is committed only when not a dry run and no errors were recorded, so a
// commit run either applies the whole file or nothing.
func (r *Resource) ImportData(ctx context.Context, store RecordStore, model string, ds *dataset.Dataset, opts ImportOptions) (*Result, error) {
	total := ds.Len()
	result := newResult(total)
	idx := ds.Index()

	if missing := r.missingColumns(idx); len(missing) > 0 {
		result.BaseErrors = append(result.BaseErrors,
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")))
		return result, nil
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, row := range ds.Rows {
		rowNumber := i + 1

		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if opts.Hooks != nil {
			if err := opts.Hooks.BeforeImportRow(ctx, rowNumber, total); err != nil {
				return nil, err
			}
		}

		rr, err := r.importRow(ctx, tx, model, rowNumber, row, idx)
		if err != nil {
			return nil, err
		}
		result.add(rr)

		if opts.RaiseErrors && len(rr.Errors) > 0 {
			return nil, fmt.Errorf("%w: line %d: %s", ErrRowAborted, rowNumber, rr.Errors[0].Error)
		}
	}

	done = true
	if opts.DryRun || result.HasErrors() {
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback: %w", err)
		}
		return result, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// importRow validates and writes one row. Only savepoint failures are
// returned as errors; everything else is recorded on the row result.
func (r *Resource) importRow(ctx context.Context, tx RecordTx, model string, rowNumber int, row []string, idx dataset.HeaderIndex) (RowResult, error) {
	rr := RowResult{Number: rowNumber}

	values, fieldErrs := r.convertRow(row, idx)
	rr.Values = values
	rr.Key = values[r.keyAttr()]

	if rr.Key == "" && len(fieldErrs) == 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: r.KeyField, Message: "required field is empty"})
	}
	if len(fieldErrs) > 0 {
		rr.ImportType = ImportInvalid
		for _, fe := range fieldErrs {
			rr.Errors = append(rr.Errors, RowError{Error: fe.Error(), Row: row})
		}
		return rr, nil
	}

	savepoint := fmt.Sprintf("sp_%d", rowNumber)
	if err := tx.Savepoint(ctx, savepoint); err != nil {
		return rr, fmt.Errorf("create savepoint: %w", err)
	}

	fail := func(msg string) (RowResult, error) {
		if err := tx.RollbackTo(ctx, savepoint); err != nil {
			return rr, fmt.Errorf("rollback savepoint: %w", err)
		}
		rr.ImportType = ImportError
		rr.Errors = append(rr.Errors, RowError{Error: msg, Row: row})
		return rr, nil
	}

	original, found, err := tx.Get(ctx, model, rr.Key)
	if err != nil {
		return fail(fmt.Sprintf("lookup: %v", err))
	}

	switch {
	case found && !r.Allows(OpUpdate):
		return fail(fmt.Sprintf("record %q exists and updates are not allowed", rr.Key))
	case !found && !r.Allows(OpCreate):
		return fail(fmt.Sprintf("record %q does not exist and creates are not allowed", rr.Key))
	}

	if found {
		rr.Original = original
		rr.ImportType = ImportUpdate
		if r.SkipUnchanged && maps.Equal(original, values) {
			rr.ImportType = ImportSkip
			if err := tx.Release(ctx, savepoint); err != nil {
				return rr, fmt.Errorf("release savepoint: %w", err)
			}
			return rr, nil
		}
	} else {
		rr.ImportType = ImportNew
	}

	if err := tx.Put(ctx, model, rr.Key, values); err != nil {
		return fail(fmt.Sprintf("save: %v", err))
	}
	if err := tx.Release(ctx, savepoint); err != nil {
		return rr, fmt.Errorf("release savepoint: %w", err)
	}
	return rr, nil
}

func (r *Resource) convertRow(row []string, idx dataset.HeaderIndex) (map[string]string, []FieldError) {
	values := make(map[string]string, len(r.Fields))
	var errs []FieldError
	for _, f := range r.Fields {
		raw, ok := idx.Cell(row, f.Column)
		if !ok {
			continue
		}
		v, err := f.Convert(raw)
		if err != nil {
			var fe FieldError
			if errors.As(err, &fe) {
				errs = append(errs, fe)
			} else {
				errs = append(errs, FieldError{Field: f.Column, Message: err.Error()})
			}
			continue
		}
		values[f.Attr()] = v
	}
	return values, errs
}

func (r *Resource) missingColumns(idx dataset.HeaderIndex) []string {
	var missing []string
	for _, f := range r.Fields {
		if !f.Required && !strings.EqualFold(f.Column, r.KeyField) {
			continue
		}
		if _, ok := idx[strings.ToLower(strings.TrimSpace(f.Column))]; !ok {
			missing = append(missing, f.Column)
		}
	}
	return missing
}

func (r *Resource) keyAttr() string {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Column, r.KeyField) {
			return f.Attr()
		}
	}
	return r.KeyField
}

// Export renders records into a dataset with one column per field.
func (r *Resource) Export(ctx context.Context, records []Record, hooks ExportHooks) (*dataset.Dataset, error) {
	ds := dataset.New(r.Headers()...)
	for _, rec := range records {
		if hooks != nil {
			if err := hooks.BeforeExportRow(ctx, rec); err != nil {
				return nil, err
			}
		}
		row := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			row[i] = rec.Data[f.Attr()]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}
