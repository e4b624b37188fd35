package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/google/uuid"
)

// Storage directories for the files the service writes.
const (
	ImportDir        = "import-jobs"
	ChangeSummaryDir = "import-change-summaries"
	ExportDir        = "export-jobs"
)

// Deps are the collaborators a Service needs.
type Deps struct {
	Jobs      JobStore
	Records   resource.RecordStore
	Registry  *resource.Registry
	Files     FileStorage
	Cache     Cache
	Mailer    Mailer
	Scheduler Scheduler

	// ServerEmail is the sender address for notifications.
	ServerEmail string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service is the entry point for job creation, the pipelines, and status reads.
type Service struct {
	jobs        JobStore
	records     resource.RecordStore
	registry    *resource.Registry
	files       FileStorage
	status      *StatusChannel
	mailer      Mailer
	scheduler   Scheduler
	serverEmail string
	now         func() time.Time
}

// NewService wires a Service and registers its trigger as the job store's
// on-created hook.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Jobs == nil:
		return nil, errors.New("core: job store is required")
	case deps.Records == nil:
		return nil, errors.New("core: record store is required")
	case deps.Registry == nil:
		return nil, errors.New("core: model registry is required")
	case deps.Files == nil:
		return nil, errors.New("core: file storage is required")
	case deps.Cache == nil:
		return nil, errors.New("core: status cache is required")
	case deps.Mailer == nil:
		return nil, errors.New("core: mailer is required")
	case deps.Scheduler == nil:
		return nil, errors.New("core: scheduler is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		jobs:        deps.Jobs,
		records:     deps.Records,
		registry:    deps.Registry,
		files:       deps.Files,
		status:      NewStatusChannel(deps.Cache, deps.Jobs),
		mailer:      deps.Mailer,
		scheduler:   deps.Scheduler,
		serverEmail: deps.ServerEmail,
		now:         now,
	}

	deps.Jobs.SetCreateHooks(CreateHooks{
		ImportJobCreated: s.OnImportJobCreated,
		ExportJobCreated: s.OnExportJobCreated,
	})
	return s, nil
}

// Registry returns the model registry the service was built with.
func (s *Service) Registry() *resource.Registry {
	return s.registry
}

// ImportRequest is an operator upload.
type ImportRequest struct {
	Model    string
	Format   string
	FileName string
	Data     []byte
	Author   string
}

// CreateImportJob stores the upload and persists a new job. The store's
// on-created hook schedules the first dry run.
func (s *Service) CreateImportJob(ctx context.Context, req ImportRequest) (*ImportJob, error) {
	if _, ok := s.registry.Get(req.Model); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.Model)
	}
	f, err := format.Resolve(req.Format)
	if err != nil {
		return nil, err
	}
	if !f.CanImport() {
		return nil, fmt.Errorf("format %s cannot be imported", f.Title())
	}
	if len(req.Data) == 0 {
		return nil, errors.New("empty file")
	}

	name := path.Base(strings.ReplaceAll(req.FileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "upload." + f.Extension()
	}
	ref, err := s.files.Save(ctx, ImportDir, name, f.ContentType(), req.Data)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := s.now()
	job := &ImportJob{
		ID:        uuid.New(),
		File:      ref,
		Model:     req.Model,
		Format:    f.ContentType(),
		Author:    req.Author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	return job, nil
}

// ExportRequest asks for a set of records to be written to a file.
type ExportRequest struct {
	Model             string
	Resource          string
	Format            string
	Keys              []string
	EmailOnCompletion bool
	SiteOfOrigin      string
	Owner             string
	OwnerEmail        string
}

// CreateExportJob persists a new export job. The store's on-created hook
// schedules the run.
func (s *Service) CreateExportJob(ctx context.Context, req ExportRequest) (*ExportJob, error) {
	cfg, ok := s.registry.Get(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.Model)
	}
	if _, err := s.registry.ExportResource(req.Model, req.Resource); err != nil {
		return nil, err
	}
	f, err := format.Resolve(req.Format)
	if err != nil {
		return nil, err
	}
	if !f.CanExport() {
		return nil, fmt.Errorf("format %s cannot be exported", f.Title())
	}
	if req.EmailOnCompletion && req.OwnerEmail == "" {
		return nil, ErrNoRecipient
	}

	keys := req.Keys
	if keys == nil {
		keys = []string{}
	}
	queryset, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encode queryset: %w", err)
	}

	now := s.now()
	job := &ExportJob{
		ID:                uuid.New(),
		AppLabel:          cfg.AppLabel,
		Model:             req.Model,
		Resource:          req.Resource,
		Format:            f.ContentType(),
		Queryset:          string(queryset),
		EmailOnCompletion: req.EmailOnCompletion,
		SiteOfOrigin:      strings.TrimSuffix(req.SiteOfOrigin, "/"),
		Owner:             req.Owner,
		OwnerEmail:        req.OwnerEmail,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.jobs.CreateExportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	return job, nil
}

// ScheduleImport re-triggers an import run, typically the commit run after
// the operator reviewed the dry-run summary.
func (s *Service) ScheduleImport(ctx context.Context, id uuid.UUID, dryRun, raiseErrors bool) error {
	if _, err := s.jobs.GetImportJob(ctx, id); err != nil {
		return err
	}
	return s.scheduler.EnqueueImport(id, dryRun, raiseErrors)
}

// GetImportJob returns an import job by ID.
func (s *Service) GetImportJob(ctx context.Context, id uuid.UUID) (*ImportJob, error) {
	return s.jobs.GetImportJob(ctx, id)
}

// GetExportJob returns an export job by ID.
func (s *Service) GetExportJob(ctx context.Context, id uuid.UUID) (*ExportJob, error) {
	return s.jobs.GetExportJob(ctx, id)
}

// ListImportJobs returns the most recent import jobs.
func (s *Service) ListImportJobs(ctx context.Context, limit int) ([]*ImportJob, error) {
	return s.jobs.ListImportJobs(ctx, limit)
}

// ListExportJobs returns the most recent export jobs.
func (s *Service) ListExportJobs(ctx context.Context, limit int) ([]*ExportJob, error) {
	return s.jobs.ListExportJobs(ctx, limit)
}

// Status returns the latest status text for a job.
func (s *Service) Status(ctx context.Context, dir Direction, id uuid.UUID) (string, error) {
	return s.status.Status(ctx, dir, id)
}

// FileURL returns a download link for a stored file reference.
func (s *Service) FileURL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.files.URL(ref)
}
