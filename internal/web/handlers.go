package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/format"
	"github.com/JonMunkholm/importexport/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleListFormats returns the formats offered on the upload and export forms.
func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]format.Choice{
		"import": format.ImportChoices(),
		"export": format.ExportChoices(),
	})
}

type modelView struct {
	Name            string   `json:"name"`
	AppLabel        string   `json:"app_label"`
	Key             string   `json:"key"`
	Columns         []string `json:"columns"`
	ExportResources []string `json:"export_resources"`
}

// handleListModels returns the configured models and their import columns.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := s.service.Registry().All()
	out := make([]modelView, 0, len(models))
	for _, m := range models {
		exports := make([]string, 0, len(m.ExportResources))
		for name := range m.ExportResources {
			exports = append(exports, name)
		}
		sort.Strings(exports)
		out = append(out, modelView{
			Name:            m.Name,
			AppLabel:        m.AppLabel,
			Key:             m.Resource.KeyField,
			Columns:         m.Resource.Headers(),
			ExportResources: exports,
		})
	}
	writeJSON(w, out)
}

// handleCreateImportJob stores a multipart upload and creates the job. The
// first dry run is scheduled by the job store's on-created hook.
func (s *Server) handleCreateImportJob(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Jobs.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	contentType := r.FormValue("format")
	if contentType == "" {
		contentType = header.Header.Get("Content-Type")
	}

	job, err := s.service.CreateImportJob(r.Context(), core.ImportRequest{
		Model:    r.FormValue("model"),
		Format:   contentType,
		FileName: header.Filename,
		Data:     data,
		Author:   operatorName(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import job created",
		"job_id", job.ID,
		"model", job.Model,
		"author", job.Author,
	)
	writeJSONStatus(w, http.StatusCreated, s.importJobView(job))
}

func (s *Server) handleListImportJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.service.ListImportJobs(r.Context(), parseIntParam(r, "limit", s.cfg.Jobs.ListLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]importJobView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, s.importJobView(job))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetImportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, err := s.service.GetImportJob(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.importJobView(job))
}

func (s *Server) handleImportJobStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, r, core.DirImport)
}

// handleRunImportJob re-triggers an import. dry_run defaults to false since
// the usual caller is confirming a reviewed dry run.
func (s *Server) handleRunImportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	dryRun, err := parseBoolParam(r, "dry_run", false)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid dry_run")
		return
	}
	raiseErrors, err := parseBoolParam(r, "raise_errors", false)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid raise_errors")
		return
	}

	if err := s.service.ScheduleImport(r.Context(), id, dryRun, raiseErrors); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]any{
		"id":           id,
		"dry_run":      dryRun,
		"raise_errors": raiseErrors,
	})
}

// exportRequest is the JSON body of POST /api/export-jobs.
type exportRequest struct {
	Model             string   `json:"model"`
	Resource          string   `json:"resource"`
	Format            string   `json:"format"`
	Keys              []string `json:"keys"`
	EmailOnCompletion bool     `json:"email_on_completion"`
	OwnerEmail        string   `json:"owner_email"`
}

func (s *Server) handleCreateExportJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Jobs.MaxFileSize)

	var req exportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := s.service.CreateExportJob(r.Context(), core.ExportRequest{
		Model:             req.Model,
		Resource:          req.Resource,
		Format:            req.Format,
		Keys:              req.Keys,
		EmailOnCompletion: req.EmailOnCompletion,
		SiteOfOrigin:      s.siteOrigin(r),
		Owner:             operatorName(r),
		OwnerEmail:        req.OwnerEmail,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("export job created",
		"job_id", job.ID,
		"model", job.Model,
		"keys", len(req.Keys),
	)
	writeJSONStatus(w, http.StatusCreated, s.exportJobView(job))
}

func (s *Server) handleListExportJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.service.ListExportJobs(r.Context(), parseIntParam(r, "limit", s.cfg.Jobs.ListLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]exportJobView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, s.exportJobView(job))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetExportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, err := s.service.GetExportJob(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.exportJobView(job))
}

func (s *Server) handleExportJobStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, r, core.DirExport)
}

// handleAdminChange serves the admin detail of a job record. Only the job
// models of this app are exposed.
func (s *Server) handleAdminChange(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "app") != core.AdminAppLabel {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	switch chi.URLParam(r, "model") {
	case "importjob":
		s.handleGetImportJob(w, r)
	case "exportjob":
		s.handleGetExportJob(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, dir core.Direction) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	status, err := s.service.Status(r.Context(), dir, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "status": status})
}
