package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/JonMunkholm/importexport/internal/dataset"
	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/JonMunkholm/importexport/internal/logging"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/JonMunkholm/importexport/internal/summary"
	"github.com/google/uuid"
)

// ImportProgressInterval is how often (in rows) import progress is reported.
const ImportProgressInterval = 100

// rowProgress reports import sub-progress for one job. It is handed to the
// resource as its per-row hook.
type rowProgress struct {
	report func(ctx context.Context, text string) error
}

func (p *rowProgress) BeforeImportRow(ctx context.Context, rowNumber, total int) error {
	if rowNumber == 1 || rowNumber%ImportProgressInterval == 0 {
		return p.report(ctx, fmt.Sprintf(PhaseImportRowFmt, rowNumber, total))
	}
	return nil
}

// RunImportJob is the queue entry point for an import run. Failures that
// escape the pipeline are written to the job record and never retried.
func (s *Service) RunImportJob(ctx context.Context, id uuid.UUID, dryRun, raiseErrors bool) error {
	log := logging.WithFields(ctx, "import_job", id, "dry_run", dryRun)
	log.Info("import started")

	job, err := s.jobs.GetImportJob(ctx, id)
	if err != nil {
		return fmt.Errorf("load import job: %w", err)
	}

	if err := s.runImport(ctx, job, dryRun, raiseErrors); err != nil {
		log.Error("import failed", "error", err)
		job.Errors += fmt.Sprintf("Import error %v\n", err)
		if rerr := s.status.Report(ctx, DirImport, job, PhaseImportError, dryRun); rerr != nil {
			return errors.Join(err, rerr)
		}
		return nil
	}

	log.Info("import finished", "status", job.JobStatus)
	return nil
}

// runImport executes the five import phases for job. Read failures are
// recorded on the job and end the run without an error; anything else
// is returned to RunImportJob.
func (s *Service) runImport(ctx context.Context, job *ImportJob, dryRun, raiseErrors bool) error {
	report := func(ctx context.Context, text string) error {
		return s.status.Report(ctx, DirImport, job, text, dryRun)
	}

	if dryRun {
		job.Errors = ""
	}
	if err := report(ctx, PhaseImportStarted); err != nil {
		return err
	}

	res, ds, err := s.readImportFile(ctx, job)
	if err != nil {
		var rerr *ReadError
		if !errors.As(err, &rerr) {
			return err
		}
		phase := PhaseImportReadError
		if errors.Is(rerr.Kind, ErrEncoding) {
			phase = PhaseImportEncoding
			job.Errors += fmt.Sprintf("Imported file has a wrong encoding: %v\n", rerr.Err)
		} else {
			job.Errors += fmt.Sprintf("Error reading file: %v\n", rerr.Err)
		}
		return report(ctx, phase)
	}

	if err := report(ctx, PhaseImportProcessing); err != nil {
		return err
	}

	result, err := res.ImportData(ctx, s.records, job.Model, ds, resource.ImportOptions{
		DryRun:      dryRun,
		RaiseErrors: raiseErrors,
		Hooks:       &rowProgress{report: report},
	})
	if err != nil {
		return err
	}

	if err := report(ctx, PhaseImportSummary); err != nil {
		return err
	}
	for _, msg := range result.BaseErrors {
		job.Errors += fmt.Sprintf("\n%s\n", msg)
	}
	for _, line := range result.RowErrors() {
		for _, rowErr := range line.Errors {
			job.Errors += fmt.Sprintf("Line: %d - %s\n", line.Line, rowErr.Error)
		}
	}

	if dryRun {
		var buf bytes.Buffer
		if err := summary.Render(ctx, &buf, job.Model, result); err != nil {
			return fmt.Errorf("render change summary: %w", err)
		}
		ref, err := s.files.Save(ctx, ChangeSummaryDir, path.Base(job.File)+".html", summary.ContentType, buf.Bytes())
		if err != nil {
			return fmt.Errorf("store change summary: %w", err)
		}
		job.ChangeSummary = ref
	} else {
		now := s.now()
		job.Imported = &now
	}

	return report(ctx, PhaseImportFinished)
}

// readImportFile resolves the model's resource and parses the upload into a
// dataset. Failures are returned as *ReadError.
func (s *Service) readImportFile(ctx context.Context, job *ImportJob) (*resource.Resource, *dataset.Dataset, error) {
	cfg, ok := s.registry.Get(job.Model)
	if !ok {
		return nil, nil, &ReadError{Kind: ErrRead, Err: fmt.Errorf("%w: %s", ErrUnknownModel, job.Model)}
	}

	f, err := format.Resolve(job.Format)
	if err != nil {
		return nil, nil, &ReadError{Kind: ErrRead, Err: err}
	}

	data, err := s.files.Open(ctx, job.File)
	if err != nil {
		return nil, nil, &ReadError{Kind: ErrRead, Err: err}
	}

	if !f.IsBinary() {
		data, err = format.DecodeUTF8(data)
		if err != nil {
			return nil, nil, &ReadError{Kind: ErrEncoding, Err: err}
		}
	}

	ds, err := f.CreateDataset(data)
	if err != nil {
		return nil, nil, &ReadError{Kind: ErrRead, Err: err}
	}

	res := cfg.Resource
	return &res, ds, nil
}
