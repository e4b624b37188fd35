// This file contains shared utilities and response views used across handlers.
package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam parses a boolean query parameter with a default value.
func parseBoolParam(r *http.Request, name string, defaultVal bool) (bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}

// parseJobID reads the {id} URL parameter, writing a 400 when malformed.
func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

// importJobView adds download links to an import job.
type importJobView struct {
	*core.ImportJob
	FileURL          string `json:"file_url"`
	ChangeSummaryURL string `json:"change_summary_url,omitempty"`
}

func (s *Server) importJobView(job *core.ImportJob) importJobView {
	return importJobView{
		ImportJob:        job,
		FileURL:          s.service.FileURL(job.File),
		ChangeSummaryURL: s.service.FileURL(job.ChangeSummary),
	}
}

// exportJobView adds the download link and admin link to an export job.
type exportJobView struct {
	*core.ExportJob
	FileURL   string `json:"file_url,omitempty"`
	AdminLink string `json:"admin_link"`
}

func (s *Server) exportJobView(job *core.ExportJob) exportJobView {
	return exportJobView{
		ExportJob: job,
		FileURL:   s.service.FileURL(job.File),
		AdminLink: core.ExportLink(job),
	}
}
