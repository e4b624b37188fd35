package resource_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/importexport/internal/database"
	"github.com/JonMunkholm/importexport/internal/dataset"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customerResource() *resource.Resource {
	return &resource.Resource{
		Name:     "customer",
		KeyField: "id",
		Fields: []resource.Field{
			{Column: "id"},
			{Column: "Full Name", Attribute: "name", Required: true},
			{Column: "active", Type: resource.FieldBool},
		},
	}
}

type rowRecorder struct {
	rows  []int
	total int
	stop  int
}

func (h *rowRecorder) BeforeImportRow(ctx context.Context, rowNumber, total int) error {
	h.rows = append(h.rows, rowNumber)
	h.total = total
	if h.stop != 0 && rowNumber == h.stop {
		return errors.New("stopped")
	}
	return nil
}

func TestImportDataCommit(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemory()
	store.PutRecord("customer", "c1", map[string]string{"id": "c1", "name": "Old", "active": "false"})

	ds := dataset.New("id", "full name", "active")
	ds.Rows = [][]string{
		{"c1", "Ada", "yes"},
		{"c2", "Grace", "no"},
	}
	hooks := &rowRecorder{}

	result, err := customerResource().ImportData(ctx, store, "customer", ds, resource.ImportOptions{Hooks: hooks})
	require.NoError(t, err)

	assert.False(t, result.HasErrors())
	assert.Equal(t, 1, result.Totals[resource.ImportUpdate])
	assert.Equal(t, 1, result.Totals[resource.ImportNew])
	assert.Equal(t, []int{1, 2}, hooks.rows)
	assert.Equal(t, 2, hooks.total)
	assert.Equal(t, map[string]string{"id": "c1", "name": "Old", "active": "false"}, result.Rows[0].Original)

	got, ok := store.Record("customer", "c1")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "c1", "name": "Ada", "active": "true"}, got)
	assert.Equal(t, 2, store.RecordCount("customer"))
}

func TestImportDataDryRunRollsBack(t *testing.T) {
	store := database.NewMemory()
	ds := dataset.New("id", "Full Name")
	ds.Rows = [][]string{{"c1", "Ada"}}

	result, err := customerResource().ImportData(context.Background(), store, "customer", ds, resource.ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Totals[resource.ImportNew])
	assert.Equal(t, 0, store.RecordCount("customer"))
}

func TestImportDataRowErrorsRollBackAll(t *testing.T) {
	store := database.NewMemory()
	ds := dataset.New("id", "Full Name", "active")
	ds.Rows = [][]string{
		{"c1", "Ada", "yes"},
		{"c2", "", "yes"},
		{"", "Nobody", ""},
		{"c4", "Eve", "perhaps"},
	}

	result, err := customerResource().ImportData(context.Background(), store, "customer", ds, resource.ImportOptions{})
	require.NoError(t, err)
	require.True(t, result.HasErrors())

	lines := result.RowErrors()
	require.Len(t, lines, 3)
	assert.Equal(t, 2, lines[0].Line)
	assert.Equal(t, "Full Name: required field is empty", lines[0].Errors[0].Error)
	assert.Equal(t, 3, lines[1].Line)
	assert.Equal(t, "id: required field is empty", lines[1].Errors[0].Error)
	assert.Equal(t, `active: invalid bool "perhaps"`, lines[2].Errors[0].Error)
	assert.Equal(t, []string{"c4", "Eve", "perhaps"}, lines[2].Errors[0].Row)

	assert.Equal(t, 0, store.RecordCount("customer"))
}

func TestImportDataRaiseErrors(t *testing.T) {
	store := database.NewMemory()
	ds := dataset.New("id", "Full Name")
	ds.Rows = [][]string{{"c1", "Ada"}, {"c2", ""}, {"c3", "Grace"}}
	hooks := &rowRecorder{}

	_, err := customerResource().ImportData(context.Background(), store, "customer", ds,
		resource.ImportOptions{RaiseErrors: true, Hooks: hooks})
	require.ErrorIs(t, err, resource.ErrRowAborted)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, []int{1, 2}, hooks.rows)
	assert.Equal(t, 0, store.RecordCount("customer"))
}

func TestImportDataHookAbort(t *testing.T) {
	store := database.NewMemory()
	ds := dataset.New("id", "Full Name")
	ds.Rows = [][]string{{"c1", "Ada"}, {"c2", "Grace"}}

	_, err := customerResource().ImportData(context.Background(), store, "customer", ds,
		resource.ImportOptions{Hooks: &rowRecorder{stop: 2}})
	assert.EqualError(t, err, "stopped")
	assert.Equal(t, 0, store.RecordCount("customer"))
}

func TestImportDataMissingColumns(t *testing.T) {
	store := database.NewMemory()
	ds := dataset.New("active")
	ds.Rows = [][]string{{"yes"}}
	hooks := &rowRecorder{}

	result, err := customerResource().ImportData(context.Background(), store, "customer", ds, resource.ImportOptions{Hooks: hooks})
	require.NoError(t, err)
	assert.Equal(t, []string{"missing required column(s): id, Full Name"}, result.BaseErrors)
	assert.Empty(t, result.Rows)
	assert.Empty(t, hooks.rows)
}

func TestImportDataOperationsAndSkip(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemory()
	store.PutRecord("customer", "c1", map[string]string{"id": "c1", "name": "Ada", "active": ""})

	res := customerResource()
	res.SkipUnchanged = true
	res.Operations = []resource.Operation{resource.OpUpdate}

	ds := dataset.New("id", "Full Name", "active")
	ds.Rows = [][]string{{"c1", "Ada", ""}, {"c2", "Grace", ""}}

	result, err := res.ImportData(ctx, store, "customer", ds, resource.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, resource.ImportSkip, result.Rows[0].ImportType)
	assert.Equal(t, resource.ImportError, result.Rows[1].ImportType)
	assert.Equal(t, `record "c2" does not exist and creates are not allowed`, result.Rows[1].Errors[0].Error)
}

type recordCounter struct{ keys []string }

func (c *recordCounter) BeforeExportRow(ctx context.Context, rec resource.Record) error {
	c.keys = append(c.keys, rec.Key)
	return nil
}

func TestExport(t *testing.T) {
	records := []resource.Record{
		{Key: "c2", Data: map[string]string{"id": "c2", "name": "Grace", "active": "true"}},
		{Key: "c1", Data: map[string]string{"id": "c1", "name": "Ada"}},
	}
	hooks := &recordCounter{}

	ds, err := customerResource().Export(context.Background(), records, hooks)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Full Name", "active"}, ds.Headers)
	assert.Equal(t, [][]string{{"c2", "Grace", "true"}, {"c1", "Ada", ""}}, ds.Rows)
	assert.Equal(t, []string{"c2", "c1"}, hooks.keys)
}

const models = `
models:
  customer:
    app_label: crm
    resource:
      key: id
      fields:
        - column: id
        - column: name
    export_resources:
      names:
        key: id
        fields:
          - column: name
          - column: id
  account:
    app_label: crm
    resource:
      key: number
      fields:
        - column: number
`

func TestRegistry(t *testing.T) {
	reg, err := resource.Parse([]byte(models))
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"account", "customer"}, reg.Names())

	cfg, ok := reg.Get("customer")
	require.True(t, ok)
	assert.Equal(t, "crm", cfg.AppLabel)
	assert.Equal(t, "customer", cfg.Resource.Name)

	res, err := reg.ExportResource("customer", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Headers())

	res, err = reg.ExportResource("customer", "names")
	require.NoError(t, err)
	assert.Equal(t, "names", res.Name)
	assert.Equal(t, []string{"name", "id"}, res.Headers())

	_, err = reg.ExportResource("customer", "missing")
	assert.ErrorContains(t, err, "has no export resource")
	_, err = reg.ExportResource("invoice", "")
	assert.ErrorContains(t, err, "unknown model")
}

func TestParseRejectsInvalidModels(t *testing.T) {
	_, err := resource.Parse([]byte("models:\n  bad:\n    resource:\n      fields:\n        - column: id\n"))
	assert.ErrorContains(t, err, "model bad")

	_, err = resource.Parse([]byte("models: [\n"))
	assert.ErrorContains(t, err, "parse models")

	_, err = resource.LoadFile("does-not-exist.yaml")
	assert.ErrorContains(t, err, "read models file")
}
