package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/JonMunkholm/importexport/internal/logging"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/google/uuid"
)

// ExportProgressInterval is how often (in rows) export progress is reported.
const ExportProgressInterval = 20

// ExportTimestampLayout is the timestamp embedded in export filenames.
const ExportTimestampLayout = "20060102T150405"

// ExportEmailSubject is the subject of the completion notice.
const ExportEmailSubject = "Export job completed"

// rowCounter reports export sub-progress. It counts rows itself since the
// export hook is not given a row number.
type rowCounter struct {
	row    int
	total  int
	report func(ctx context.Context, text string) error
}

func (c *rowCounter) BeforeExportRow(ctx context.Context, _ resource.Record) error {
	if c.row == 1 || c.row%ExportProgressInterval == 0 {
		if err := c.report(ctx, fmt.Sprintf(PhaseExportRowFmt, c.row, c.total)); err != nil {
			return err
		}
	}
	c.row++
	return nil
}

// RunExportJob is the queue entry point for an export run. Errors are
// returned to the caller and not recorded on the job.
func (s *Service) RunExportJob(ctx context.Context, id uuid.UUID) error {
	log := logging.WithFields(ctx, "export_job", id)
	log.Info("export started")

	job, err := s.jobs.GetExportJob(ctx, id)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	if err := s.runExport(ctx, job); err != nil {
		return fmt.Errorf("export job %s: %w", id, err)
	}

	log.Info("export finished", "file", job.File)
	return nil
}

func (s *Service) runExport(ctx context.Context, job *ExportJob) error {
	res, err := s.registry.ExportResource(job.Model, job.Resource)
	if err != nil {
		return err
	}
	keys, err := job.Keys()
	if err != nil {
		return err
	}
	records, err := s.records.Records(ctx, job.Model, keys)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	counter := &rowCounter{
		row:   1,
		total: len(records),
		report: func(ctx context.Context, text string) error {
			return s.status.Report(ctx, DirExport, job, text, false)
		},
	}
	ds, err := res.Export(ctx, records, counter)
	if err != nil {
		return err
	}

	f, err := format.Resolve(job.Format)
	if err != nil {
		return err
	}
	data, err := f.ExportData(ds)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	contentType := f.ContentType()
	if !f.IsBinary() {
		contentType += "; charset=utf-8"
	}
	name := fmt.Sprintf("%s-%s-%s.%s", job.AppLabel, job.Model, s.now().Format(ExportTimestampLayout), f.Extension())
	ref, err := s.files.Save(ctx, ExportDir, name, contentType, data)
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	job.File = ref

	if err := s.status.Report(ctx, DirExport, job, PhaseExportComplete, false); err != nil {
		return err
	}

	if job.EmailOnCompletion {
		return s.notifyExport(ctx, job)
	}
	return nil
}

// ExportLink returns the admin detail URL for an export job.
func ExportLink(job *ExportJob) string {
	return fmt.Sprintf("%s/admin/%s/exportjob/%s/change/", job.SiteOfOrigin, AdminAppLabel, job.ID)
}

func (s *Service) notifyExport(ctx context.Context, job *ExportJob) error {
	if job.OwnerEmail == "" {
		return ErrNoRecipient
	}
	body := fmt.Sprintf(
		"Your export job on model %s.%s has completed. You can download the file at the following link:\n\n%s",
		job.AppLabel, job.Model, ExportLink(job),
	)
	err := s.mailer.Send(ctx, Message{
		Subject: ExportEmailSubject,
		Body:    body,
		From:    s.serverEmail,
		To:      []string{job.OwnerEmail},
	})
	if err != nil {
		return fmt.Errorf("send completion email: %w", err)
	}
	return nil
}
