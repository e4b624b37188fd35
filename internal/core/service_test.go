package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/database"
	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/JonMunkholm/importexport/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelsYAML = `
models:
  customer:
    app_label: crm
    resource:
      key: id
      fields:
        - column: id
        - column: name
          required: true
        - column: signup
          type: date
    export_resources:
      names:
        key: id
        fields:
          - column: id
          - column: name
`

// historyCache records every write so tests can assert on the sequence of
// statuses, not only the last one.
type historyCache struct {
	mu      sync.Mutex
	values  map[string]string
	history map[string][]string
}

func newHistoryCache() *historyCache {
	return &historyCache{values: map[string]string{}, history: map[string][]string{}}
}

func (c *historyCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.history[key] = append(c.history[key], value)
}

func (c *historyCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *historyCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

func (c *historyCache) writes(key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.history[key]...)
}

type enqueued struct {
	id          uuid.UUID
	dryRun      bool
	raiseErrors bool
}

type fakeScheduler struct {
	mu      sync.Mutex
	imports []enqueued
	exports []uuid.UUID
}

func (s *fakeScheduler) EnqueueImport(id uuid.UUID, dryRun, raiseErrors bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = append(s.imports, enqueued{id, dryRun, raiseErrors})
	return nil
}

func (s *fakeScheduler) EnqueueExport(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []core.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	svc    *core.Service
	jobs   *database.Memory
	files  *storage.Memory
	cache  *historyCache
	sched  *fakeScheduler
	mailer *fakeMailer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := resource.Parse([]byte(modelsYAML))
	require.NoError(t, err)

	f := &fixture{
		jobs:   database.NewMemory(),
		files:  storage.NewMemory(),
		cache:  newHistoryCache(),
		sched:  &fakeScheduler{},
		mailer: &fakeMailer{},
		now:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.svc, err = core.NewService(core.Deps{
		Jobs:        f.jobs,
		Records:     f.jobs,
		Registry:    reg,
		Files:       f.files,
		Cache:       f.cache,
		Mailer:      f.mailer,
		Scheduler:   f.sched,
		ServerEmail: "jobs@example.com",
		Now:         func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) upload(t *testing.T, name, data string) *core.ImportJob {
	t.Helper()
	job, err := f.svc.CreateImportJob(context.Background(), core.ImportRequest{
		Model:    "customer",
		Format:   "text/csv",
		FileName: name,
		Data:     []byte(data),
		Author:   "ops",
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) importJob(t *testing.T, id uuid.UUID) *core.ImportJob {
	t.Helper()
	job, err := f.jobs.GetImportJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func csvRows(n int) string {
	var b strings.Builder
	b.WriteString("id,name,signup\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "c%d,Customer %d,2024-01-%02d\n", i, i, i%28+1)
	}
	return b.String()
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := core.NewService(core.Deps{})
	assert.Error(t, err)
}

func TestCreateImportJobTriggersDryRunOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	job := f.upload(t, "customers.csv", csvRows(2))
	assert.Equal(t, "import-jobs/customers.csv", job.File)

	stored := f.importJob(t, job.ID)
	require.NotNil(t, stored.ProcessingInitiated)
	assert.Equal(t, f.now, *stored.ProcessingInitiated)
	require.Len(t, f.sched.imports, 1)
	assert.Equal(t, enqueued{job.ID, true, false}, f.sched.imports[0])

	// Later saves never re-trigger or reset the timestamp.
	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.svc.OnImportJobCreated(ctx, stored))
	require.NoError(t, f.jobs.SaveImportJob(ctx, stored))

	again := f.importJob(t, job.ID)
	assert.Len(t, f.sched.imports, 1)
	assert.Equal(t, *stored.ProcessingInitiated, *again.ProcessingInitiated)
}

func TestCreateImportJobValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateImportJob(ctx, core.ImportRequest{Model: "invoice", Format: "text/csv", FileName: "a.csv", Data: []byte("x")})
	assert.ErrorIs(t, err, core.ErrUnknownModel)

	_, err = f.svc.CreateImportJob(ctx, core.ImportRequest{Model: "customer", Format: "application/pdf", FileName: "a.pdf", Data: []byte("x")})
	assert.ErrorIs(t, err, format.ErrUnknownFormat)

	_, err = f.svc.CreateImportJob(ctx, core.ImportRequest{Model: "customer", Format: "text/csv", FileName: "a.csv"})
	assert.ErrorContains(t, err, "empty file")
	assert.Empty(t, f.sched.imports)
}

func TestDryRunProducesSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "customers.csv", csvRows(3))

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "[Dry run] 5/5 Import job finished", got.JobStatus)
	assert.Nil(t, got.Imported)
	assert.Empty(t, got.Errors)
	assert.Equal(t, "import-change-summaries/customers.csv.html", got.ChangeSummary)

	html, err := f.files.Open(ctx, got.ChangeSummary)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(html), "<html>"))
	assert.Equal(t, 0, f.jobs.RecordCount("customer"), "dry run writes nothing")

	assert.Equal(t, []string{
		"[Dry run] 1/5 Import started",
		"[Dry run] 2/5 Processing import data",
		"[Dry run] 3/5 Importing row 1/3",
		"[Dry run] 4/5 Generating import summary",
		"[Dry run] 5/5 Import job finished",
	}, f.cache.writes(core.StatusKey(core.DirImport, job.ID)))
}

func TestCommitRunSetsImported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "customers.csv", csvRows(3))

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, false, false))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "5/5 Import job finished", got.JobStatus)
	require.NotNil(t, got.Imported)
	assert.Equal(t, f.now, *got.Imported)
	assert.Empty(t, got.ChangeSummary)
	assert.Len(t, f.files.Refs(), 1, "only the upload is stored")

	assert.Equal(t, 3, f.jobs.RecordCount("customer"))
	rec, ok := f.jobs.Record("customer", "c2")
	require.True(t, ok)
	assert.Equal(t, "Customer 2", rec["name"])
}

func TestDryRunResetsErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "bad.csv", "id,name,signup\nc1,Ada,2024-01-01\nc2,Grace,not-a-date\n")

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))
	first := f.importJob(t, job.ID).Errors
	assert.Equal(t, "Line: 2 - signup: invalid date \"not-a-date\"\n", first)

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))
	second := f.importJob(t, job.ID).Errors
	assert.Equal(t, first, second)
	assert.Equal(t, 1, strings.Count(second, "Line:"))
}

func TestCommitRunKeepsDryRunErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "bad.csv", "id,name,signup\nc1,Ada,2024-01-01\nc2,Grace,not-a-date\n")
	line := "Line: 2 - signup: invalid date \"not-a-date\"\n"

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))
	assert.Equal(t, line, f.importJob(t, job.ID).Errors)

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, false, false))
	got := f.importJob(t, job.ID)
	assert.Equal(t, line+line, got.Errors, "commit appends to the dry run's errors")
	assert.Equal(t, "5/5 Import job finished", got.JobStatus)
	require.NotNil(t, got.Imported)
	assert.Equal(t, 0, f.jobs.RecordCount("customer"), "row errors roll the commit back")

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))
	assert.Equal(t, line, f.importJob(t, job.ID).Errors, "the next dry run starts clean")
}

func TestBaseErrorsAppended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "noname.csv", "id,signup\nc1,2024-01-01\n")

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "\nmissing required column(s): name\n", got.Errors)
	assert.Equal(t, "[Dry run] 5/5 Import job finished", got.JobStatus)
}

func TestImportProgressThrottled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "big.csv", csvRows(250))

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))

	var rows []string
	for _, s := range f.cache.writes(core.StatusKey(core.DirImport, job.ID)) {
		if strings.Contains(s, "Importing row") {
			rows = append(rows, s)
		}
	}
	assert.Equal(t, []string{
		"[Dry run] 3/5 Importing row 1/250",
		"[Dry run] 3/5 Importing row 100/250",
		"[Dry run] 3/5 Importing row 200/250",
	}, rows)
}

func TestImportWrongEncoding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "latin1.csv", "id,name\nc1,Caf\xe9\n")

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "[Dry run] Imported file has a wrong encoding", got.JobStatus)
	assert.True(t, strings.HasPrefix(got.Errors, "Imported file has a wrong encoding: "), got.Errors)
	assert.Empty(t, got.ChangeSummary)

	for _, s := range f.cache.writes(core.StatusKey(core.DirImport, job.ID)) {
		assert.NotContains(t, s, "Processing import data")
		assert.NotContains(t, s, "Importing row")
	}
}

func TestImportReadError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ref, err := f.files.Save(ctx, core.ImportDir, "doc.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	job := &core.ImportJob{ID: uuid.New(), File: ref, Model: "customer", Format: "application/pdf"}
	require.NoError(t, f.jobs.CreateImportJob(ctx, job))

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, false, false))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "Error reading file", got.JobStatus)
	assert.True(t, strings.HasPrefix(got.Errors, "Error reading file: "), got.Errors)
	assert.Nil(t, got.Imported)
}

func TestImportRaiseErrorsIsImportError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "bad.csv", "id,name,signup\nc1,Ada,2024-01-01\nc2,,2024-01-01\n")

	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, false, true))

	got := f.importJob(t, job.ID)
	assert.Equal(t, "Import error", got.JobStatus)
	assert.Contains(t, got.Errors, "Import error ")
	assert.Contains(t, got.Errors, resource.ErrRowAborted.Error())
	assert.Nil(t, got.Imported)
	assert.Equal(t, 0, f.jobs.RecordCount("customer"), "aborted import is rolled back")
}

func TestRunImportJobUnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.svc.RunImportJob(context.Background(), uuid.New(), true, false)
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestScheduleImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "customers.csv", csvRows(1))

	require.NoError(t, f.svc.ScheduleImport(ctx, job.ID, false, true))
	require.Len(t, f.sched.imports, 2)
	assert.Equal(t, enqueued{job.ID, false, true}, f.sched.imports[1])

	assert.ErrorIs(t, f.svc.ScheduleImport(ctx, uuid.New(), false, false), core.ErrJobNotFound)
}

func TestStatusMatchesRecordAndFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.upload(t, "customers.csv", csvRows(1))
	require.NoError(t, f.svc.RunImportJob(ctx, job.ID, true, false))

	stored := f.importJob(t, job.ID)
	status, err := f.svc.Status(ctx, core.DirImport, job.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.JobStatus, status)

	f.cache.evict(core.StatusKey(core.DirImport, job.ID))
	status, err = f.svc.Status(ctx, core.DirImport, job.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.JobStatus, status)

	_, err = f.svc.Status(ctx, core.DirExport, uuid.New())
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func (f *fixture) seedCustomers(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("c%02d", i+1)
		f.jobs.PutRecord("customer", keys[i], map[string]string{"id": keys[i], "name": "Customer " + keys[i]})
	}
	return keys
}

func TestExportProgressAndFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	keys := f.seedCustomers(45)

	job, err := f.svc.CreateExportJob(ctx, core.ExportRequest{
		Model:  "customer",
		Format: "text/csv",
		Keys:   keys,
	})
	require.NoError(t, err)
	assert.Empty(t, job.Resource)
	require.NotNil(t, job.ProcessingInitiated)
	require.Equal(t, []uuid.UUID{job.ID}, f.sched.exports, "export without a named resource is still scheduled")

	require.NoError(t, f.svc.RunExportJob(ctx, job.ID))

	assert.Equal(t, []string{
		"Exporting row 1/45",
		"Exporting row 20/45",
		"Exporting row 40/45",
		"Export complete",
	}, f.cache.writes(core.StatusKey(core.DirExport, job.ID)))

	got, err := f.jobs.GetExportJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Export complete", got.JobStatus)
	assert.Equal(t, "export-jobs/crm-customer-20240102T030405.csv", got.File)
	assert.Equal(t, "text/csv; charset=utf-8", f.files.ContentType(got.File))

	data, err := f.files.Open(ctx, got.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 46)
	assert.Equal(t, "id,name,signup", strings.TrimSpace(lines[0]))
	assert.Empty(t, f.mailer.sent)
}

func TestExportNamedResourceAndEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	keys := f.seedCustomers(2)

	job, err := f.svc.CreateExportJob(ctx, core.ExportRequest{
		Model:             "customer",
		Resource:          "names",
		Format:            "application/json",
		Keys:              keys,
		EmailOnCompletion: true,
		SiteOfOrigin:      "https://admin.example.com/",
		Owner:             "ops",
		OwnerEmail:        "ops@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.RunExportJob(ctx, job.ID))

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "Export job completed", msg.Subject)
	assert.Equal(t, "jobs@example.com", msg.From)
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "https://admin.example.com/admin/importexport/exportjob/"+job.ID.String()+"/change/")
	assert.Contains(t, msg.Body, "crm.customer")

	got, err := f.jobs.GetExportJob(ctx, job.ID)
	require.NoError(t, err)
	data, err := f.files.Open(ctx, got.File)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "signup")
}

func TestCreateExportJobValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateExportJob(ctx, core.ExportRequest{Model: "invoice", Format: "text/csv"})
	assert.ErrorIs(t, err, core.ErrUnknownModel)

	_, err = f.svc.CreateExportJob(ctx, core.ExportRequest{Model: "customer", Resource: "nope", Format: "text/csv"})
	assert.Error(t, err)

	_, err = f.svc.CreateExportJob(ctx, core.ExportRequest{Model: "customer", Format: "text/csv", EmailOnCompletion: true})
	assert.ErrorIs(t, err, core.ErrNoRecipient)
	assert.Empty(t, f.sched.exports)
}

func TestExportErrorNotWrittenToJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	job := &core.ExportJob{ID: uuid.New(), AppLabel: "crm", Model: "customer", Format: "text/plain", Queryset: "[]"}
	require.NoError(t, f.jobs.CreateExportJob(ctx, job))

	err := f.svc.RunExportJob(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrUnknownFormat))

	got, err := f.jobs.GetExportJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.JobStatus)
	assert.Empty(t, got.File)
}
