package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction namespaces status channel keys.
type Direction string

const (
	DirImport Direction = "import"
	DirExport Direction = "export"
)

// ImportJob is one uploaded file and its validation/import lifecycle.
type ImportJob struct {
	ID     uuid.UUID `json:"id"`
	File   string    `json:"file"`   // Storage reference of the upload
	Model  string    `json:"model"`  // Target model name from the registry
	Format string    `json:"format"` // Content type of the upload

	// ProcessingInitiated is set once, by the trigger, on first save.
	ProcessingInitiated *time.Time `json:"processing_initiated"`
	// Imported is set by a commit run that finished without a fatal error.
	Imported *time.Time `json:"imported"`

	Errors        string `json:"errors"`
	JobStatus     string `json:"job_status"`
	ChangeSummary string `json:"change_summary"` // Storage reference, empty until a dry run finishes

	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportJob is one request to write a set of records to a file.
type ExportJob struct {
	ID       uuid.UUID `json:"id"`
	AppLabel string    `json:"app_label"`
	Model    string    `json:"model"`
	Resource string    `json:"resource"` // Named export resource; empty uses the model default
	Format   string    `json:"format"`
	File     string    `json:"file"`

	// Queryset is the JSON list of record keys to export.
	Queryset string `json:"queryset"`

	EmailOnCompletion bool   `json:"email_on_completion"`
	SiteOfOrigin      string `json:"site_of_origin"`
	Owner             string `json:"owner"`
	OwnerEmail        string `json:"owner_email"`

	ProcessingInitiated *time.Time `json:"processing_initiated"`
	JobStatus           string     `json:"job_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keys decodes the queryset.
func (j *ExportJob) Keys() ([]string, error) {
	var keys []string
	if err := json.Unmarshal([]byte(j.Queryset), &keys); err != nil {
		return nil, fmt.Errorf("decode queryset: %w", err)
	}
	return keys, nil
}

// Job is the part of a job record the status channel writes.
type Job interface {
	JobID() uuid.UUID
	SetStatus(status string)
}

func (j *ImportJob) JobID() uuid.UUID        { return j.ID }
func (j *ImportJob) SetStatus(status string) { j.JobStatus = status }
func (j *ExportJob) JobID() uuid.UUID        { return j.ID }
func (j *ExportJob) SetStatus(status string) { j.JobStatus = status }

// CreateHooks are invoked by the JobStore immediately after a successful insert.
type CreateHooks struct {
	ImportJobCreated func(ctx context.Context, job *ImportJob) error
	ExportJobCreated func(ctx context.Context, job *ExportJob) error
}

// JobStore persists job records.
type JobStore interface {
	CreateImportJob(ctx context.Context, job *ImportJob) error
	GetImportJob(ctx context.Context, id uuid.UUID) (*ImportJob, error)
	SaveImportJob(ctx context.Context, job *ImportJob) error
	ListImportJobs(ctx context.Context, limit int) ([]*ImportJob, error)

	CreateExportJob(ctx context.Context, job *ExportJob) error
	GetExportJob(ctx context.Context, id uuid.UUID) (*ExportJob, error)
	SaveExportJob(ctx context.Context, job *ExportJob) error
	ListExportJobs(ctx context.Context, limit int) ([]*ExportJob, error)

	SetCreateHooks(hooks CreateHooks)
}

// Scheduler enqueues pipeline runs. Runs are fire-and-forget and never retried.
type Scheduler interface {
	EnqueueImport(id uuid.UUID, dryRun, raiseErrors bool) error
	EnqueueExport(id uuid.UUID) error
}

// Cache is the fast-read side channel behind the status channel.
type Cache interface {
	Set(key, value string)
	Get(key string) (string, bool)
}

// FileStorage stores uploads and generated files.
type FileStorage interface {
	Open(ctx context.Context, ref string) ([]byte, error)
	Save(ctx context.Context, dir, name, contentType string, data []byte) (string, error)
	URL(ref string) string
}

// Message is an outbound notification.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer delivers notifications.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// AdminAppLabel is the admin route segment for job records.
const AdminAppLabel = "importexport"
