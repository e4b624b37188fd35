package core

// status.go publishes job phases to the fast-read cache and the job record.
//
// Within one pipeline run all writes for a job key are sequential, so the
// channel never reconciles concurrent writers. The cache may evict entries at
// any time; Status falls back to the persisted record.

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DryRunPrefix is prepended to every status written during a dry run.
const DryRunPrefix = "[Dry run] "

// Import phases.
const (
	PhaseImportStarted    = "1/5 Import started"
	PhaseImportProcessing = "2/5 Processing import data"
	PhaseImportRowFmt     = "3/5 Importing row %d/%d"
	PhaseImportSummary    = "4/5 Generating import summary"
	PhaseImportFinished   = "5/5 Import job finished"
	PhaseImportEncoding   = "Imported file has a wrong encoding"
	PhaseImportReadError  = "Error reading file"
	PhaseImportError      = "Import error"
)

// Export phases.
const (
	PhaseExportRowFmt   = "Exporting row %d/%d"
	PhaseExportComplete = "Export complete"
)

// StatusKey returns the cache key for a job's status.
func StatusKey(dir Direction, id uuid.UUID) string {
	return fmt.Sprintf("%s_job_status_%s", dir, id)
}

// StatusChannel writes phase text to the cache and the job record.
type StatusChannel struct {
	cache Cache
	store JobStore
}

// NewStatusChannel creates a status channel over cache and store.
func NewStatusChannel(cache Cache, store JobStore) *StatusChannel {
	return &StatusChannel{cache: cache, store: store}
}

// Report publishes text for job, prefixed when dryRun, then saves the job.
// Save errors are returned; the caller decides whether they are fatal.
func (c *StatusChannel) Report(ctx context.Context, dir Direction, job Job, text string, dryRun bool) error {
	if dryRun {
		text = DryRunPrefix + text
	}
	c.cache.Set(StatusKey(dir, job.JobID()), text)
	job.SetStatus(text)

	switch j := job.(type) {
	case *ImportJob:
		return c.store.SaveImportJob(ctx, j)
	case *ExportJob:
		return c.store.SaveExportJob(ctx, j)
	default:
		return fmt.Errorf("status: unsupported job type %T", job)
	}
}

// Status returns the latest status for a job, reading the cache first.
func (c *StatusChannel) Status(ctx context.Context, dir Direction, id uuid.UUID) (string, error) {
	if s, ok := c.cache.Get(StatusKey(dir, id)); ok {
		return s, nil
	}

	switch dir {
	case DirImport:
		job, err := c.store.GetImportJob(ctx, id)
		if err != nil {
			return "", err
		}
		return job.JobStatus, nil
	case DirExport:
		job, err := c.store.GetExportJob(ctx, id)
		if err != nil {
			return "", err
		}
		return job.JobStatus, nil
	default:
		return "", fmt.Errorf("status: unknown direction %q", dir)
	}
}
