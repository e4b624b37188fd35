package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/importexport/internal/logging"
)

// OnImportJobCreated schedules the first dry run for a newly inserted import
// job. The ProcessingInitiated check is not locked: two concurrent saves of
// the same unstarted job can both schedule a run.
func (s *Service) OnImportJobCreated(ctx context.Context, job *ImportJob) error {
	if job.ProcessingInitiated != nil {
		return nil
	}
	now := s.now()
	job.ProcessingInitiated = &now
	if err := s.jobs.SaveImportJob(ctx, job); err != nil {
		return fmt.Errorf("mark import job initiated: %w", err)
	}
	if err := s.scheduler.EnqueueImport(job.ID, true, false); err != nil {
		return fmt.Errorf("schedule import job: %w", err)
	}
	logging.WithFields(ctx, "import_job", job.ID).Info("import job scheduled", "dry_run", true)
	return nil
}

// OnExportJobCreated schedules the run for a newly inserted export job.
func (s *Service) OnExportJobCreated(ctx context.Context, job *ExportJob) error {
	if job.ProcessingInitiated != nil {
		return nil
	}
	now := s.now()
	job.ProcessingInitiated = &now
	if err := s.jobs.SaveExportJob(ctx, job); err != nil {
		return fmt.Errorf("mark export job initiated: %w", err)
	}
	if err := s.scheduler.EnqueueExport(job.ID); err != nil {
		return fmt.Errorf("schedule export job: %w", err)
	}
	logging.WithFields(ctx, "export_job", job.ID).Info("export job scheduled")
	return nil
}
