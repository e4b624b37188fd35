package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const importJobColumns = `id, file, model, format, processing_initiated, imported, errors, job_status, change_summary, author, created_at, updated_at`

func scanImportJob(row interface{ Scan(...any) error }) (ImportJob, error) {
	var i ImportJob
	err := row.Scan(
		&i.ID,
		&i.File,
		&i.Model,
		&i.Format,
		&i.ProcessingInitiated,
		&i.Imported,
		&i.Errors,
		&i.JobStatus,
		&i.ChangeSummary,
		&i.Author,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertImportJob = `-- name: InsertImportJob :one
INSERT INTO import_job (
    id, file, model, format, processing_initiated, imported, errors, job_status, change_summary, author, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + importJobColumns

func (q *Queries) InsertImportJob(ctx context.Context, arg ImportJob) (ImportJob, error) {
	row := q.db.QueryRow(ctx, insertImportJob,
		arg.ID,
		arg.File,
		arg.Model,
		arg.Format,
		arg.ProcessingInitiated,
		arg.Imported,
		arg.Errors,
		arg.JobStatus,
		arg.ChangeSummary,
		arg.Author,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanImportJob(row)
}

const getImportJob = `-- name: GetImportJob :one
SELECT ` + importJobColumns + `
FROM import_job
WHERE id = $1`

func (q *Queries) GetImportJob(ctx context.Context, id pgtype.UUID) (ImportJob, error) {
	return scanImportJob(q.db.QueryRow(ctx, getImportJob, id))
}

const updateImportJob = `-- name: UpdateImportJob :execrows
UPDATE import_job SET
    file = $2,
    model = $3,
    format = $4,
    processing_initiated = $5,
    imported = $6,
    errors = $7,
    job_status = $8,
    change_summary = $9,
    author = $10,
    updated_at = $11
WHERE id = $1`

func (q *Queries) UpdateImportJob(ctx context.Context, arg ImportJob) (int64, error) {
	result, err := q.db.Exec(ctx, updateImportJob,
		arg.ID,
		arg.File,
		arg.Model,
		arg.Format,
		arg.ProcessingInitiated,
		arg.Imported,
		arg.Errors,
		arg.JobStatus,
		arg.ChangeSummary,
		arg.Author,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listImportJobs = `-- name: ListImportJobs :many
SELECT ` + importJobColumns + `
FROM import_job
ORDER BY created_at DESC
LIMIT $1`

func (q *Queries) ListImportJobs(ctx context.Context, limit int32) ([]ImportJob, error) {
	rows, err := q.db.Query(ctx, listImportJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportJob
	for rows.Next() {
		i, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const exportJobColumns = `id, app_label, model, resource, format, file, queryset, email_on_completion, site_of_origin, owner, owner_email, processing_initiated, job_status, created_at, updated_at`

func scanExportJob(row interface{ Scan(...any) error }) (ExportJob, error) {
	var i ExportJob
	err := row.Scan(
		&i.ID,
		&i.AppLabel,
		&i.Model,
		&i.Resource,
		&i.Format,
		&i.File,
		&i.Queryset,
		&i.EmailOnCompletion,
		&i.SiteOfOrigin,
		&i.Owner,
		&i.OwnerEmail,
		&i.ProcessingInitiated,
		&i.JobStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertExportJob = `-- name: InsertExportJob :one
INSERT INTO export_job (
    id, app_label, model, resource, format, file, queryset, email_on_completion,
    site_of_origin, owner, owner_email, processing_initiated, job_status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + exportJobColumns

func (q *Queries) InsertExportJob(ctx context.Context, arg ExportJob) (ExportJob, error) {
	row := q.db.QueryRow(ctx, insertExportJob,
		arg.ID,
		arg.AppLabel,
		arg.Model,
		arg.Resource,
		arg.Format,
		arg.File,
		arg.Queryset,
		arg.EmailOnCompletion,
		arg.SiteOfOrigin,
		arg.Owner,
		arg.OwnerEmail,
		arg.ProcessingInitiated,
		arg.JobStatus,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanExportJob(row)
}

const getExportJob = `-- name: GetExportJob :one
SELECT ` + exportJobColumns + `
FROM export_job
WHERE id = $1`

func (q *Queries) GetExportJob(ctx context.Context, id pgtype.UUID) (ExportJob, error) {
	return scanExportJob(q.db.QueryRow(ctx, getExportJob, id))
}

const updateExportJob = `-- name: UpdateExportJob :execrows
UPDATE export_job SET
    app_label = $2,
    model = $3,
    resource = $4,
    format = $5,
    file = $6,
    queryset = $7,
    email_on_completion = $8,
    site_of_origin = $9,
    owner = $10,
    owner_email = $11,
    processing_initiated = $12,
    job_status = $13,
    updated_at = $14
WHERE id = $1`

func (q *Queries) UpdateExportJob(ctx context.Context, arg ExportJob) (int64, error) {
	result, err := q.db.Exec(ctx, updateExportJob,
		arg.ID,
		arg.AppLabel,
		arg.Model,
		arg.Resource,
		arg.Format,
		arg.File,
		arg.Queryset,
		arg.EmailOnCompletion,
		arg.SiteOfOrigin,
		arg.Owner,
		arg.OwnerEmail,
		arg.ProcessingInitiated,
		arg.JobStatus,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listExportJobs = `-- name: ListExportJobs :many
SELECT ` + exportJobColumns + `
FROM export_job
ORDER BY created_at DESC
LIMIT $1`

func (q *Queries) ListExportJobs(ctx context.Context, limit int32) ([]ExportJob, error) {
	rows, err := q.db.Query(ctx, listExportJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExportJob
	for rows.Next() {
		i, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
