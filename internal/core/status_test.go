package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/google/uuid"
)

type mapCache map[string]string

func (c mapCache) Set(key, value string) { c[key] = value }
func (c mapCache) Get(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

// savingStore records saved statuses; only the Save methods are used.
type savingStore struct {
	JobStore
	saved   []string
	saveErr error
}

func (s *savingStore) SaveImportJob(ctx context.Context, job *ImportJob) error {
	s.saved = append(s.saved, job.JobStatus)
	return s.saveErr
}

func (s *savingStore) SaveExportJob(ctx context.Context, job *ExportJob) error {
	s.saved = append(s.saved, job.JobStatus)
	return s.saveErr
}

func TestStatusKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got := StatusKey(DirExport, id)
	want := "export_job_status_6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	if got != want {
		t.Errorf("StatusKey() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name   string
		job    Job
		dir    Direction
		text   string
		dryRun bool
		want   string
	}{
		{"import dry run", &ImportJob{ID: uuid.New()}, DirImport, PhaseImportStarted, true, "[Dry run] 1/5 Import started"},
		{"import commit", &ImportJob{ID: uuid.New()}, DirImport, PhaseImportFinished, false, "5/5 Import job finished"},
		{"export", &ExportJob{ID: uuid.New()}, DirExport, PhaseExportComplete, false, "Export complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := mapCache{}
			store := &savingStore{}
			ch := NewStatusChannel(cache, store)

			if err := ch.Report(context.Background(), tt.dir, tt.job, tt.text, tt.dryRun); err != nil {
				t.Fatalf("Report() error = %v", err)
			}

			cached := cache[StatusKey(tt.dir, tt.job.JobID())]
			if cached != tt.want {
				t.Errorf("cache = %q, want %q", cached, tt.want)
			}
			if len(store.saved) != 1 || store.saved[0] != tt.want {
				t.Errorf("saved = %v, want [%q]", store.saved, tt.want)
			}
		})
	}
}

func TestReportReturnsSaveError(t *testing.T) {
	store := &savingStore{saveErr: errors.New("connection reset")}
	ch := NewStatusChannel(mapCache{}, store)

	err := ch.Report(context.Background(), DirImport, &ImportJob{ID: uuid.New()}, PhaseImportStarted, false)
	if err == nil || err.Error() != "connection reset" {
		t.Errorf("Report() error = %v, want connection reset", err)
	}
}

func TestRowProgress(t *testing.T) {
	var got []string
	p := &rowProgress{report: func(ctx context.Context, text string) error {
		got = append(got, text)
		return nil
	}}

	for n := 1; n <= 250; n++ {
		if err := p.BeforeImportRow(context.Background(), n, 250); err != nil {
			t.Fatalf("BeforeImportRow(%d) error = %v", n, err)
		}
	}

	want := []string{
		fmt.Sprintf(PhaseImportRowFmt, 1, 250),
		fmt.Sprintf(PhaseImportRowFmt, 100, 250),
		fmt.Sprintf(PhaseImportRowFmt, 200, 250),
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("reports = %v, want %v", got, want)
	}
}

func TestRowCounter(t *testing.T) {
	var got []string
	c := &rowCounter{row: 1, total: 45, report: func(ctx context.Context, text string) error {
		got = append(got, text)
		return nil
	}}

	for i := 0; i < 45; i++ {
		if err := c.BeforeExportRow(context.Background(), resource.Record{}); err != nil {
			t.Fatalf("BeforeExportRow() error = %v", err)
		}
	}

	want := []string{"Exporting row 1/45", "Exporting row 20/45", "Exporting row 40/45"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("reports = %v, want %v", got, want)
	}
	if c.row != 46 {
		t.Errorf("row = %d, want 46", c.row)
	}
}

func TestRowProgressStopsOnReportError(t *testing.T) {
	boom := errors.New("boom")
	p := &rowProgress{report: func(ctx context.Context, text string) error { return boom }}
	if err := p.BeforeImportRow(context.Background(), 1, 10); !errors.Is(err, boom) {
		t.Errorf("BeforeImportRow() error = %v, want boom", err)
	}
	if err := p.BeforeImportRow(context.Background(), 2, 10); err != nil {
		t.Errorf("BeforeImportRow(2) error = %v, want nil", err)
	}
}
