package database

import (
	"time"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toPgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func importJobRow(j *core.ImportJob) ImportJob {
	return ImportJob{
		ID:                  toPgUUID(j.ID),
		File:                j.File,
		Model:               j.Model,
		Format:              j.Format,
		ProcessingInitiated: toPgTime(j.ProcessingInitiated),
		Imported:            toPgTime(j.Imported),
		Errors:              j.Errors,
		JobStatus:           j.JobStatus,
		ChangeSummary:       j.ChangeSummary,
		Author:              j.Author,
		CreatedAt:           pgtype.Timestamptz{Time: j.CreatedAt, Valid: true},
		UpdatedAt:           pgtype.Timestamptz{Time: j.UpdatedAt, Valid: true},
	}
}

func importJobFromRow(r ImportJob) *core.ImportJob {
	return &core.ImportJob{
		ID:                  uuid.UUID(r.ID.Bytes),
		File:                r.File,
		Model:               r.Model,
		Format:              r.Format,
		ProcessingInitiated: fromPgTime(r.ProcessingInitiated),
		Imported:            fromPgTime(r.Imported),
		Errors:              r.Errors,
		JobStatus:           r.JobStatus,
		ChangeSummary:       r.ChangeSummary,
		Author:              r.Author,
		CreatedAt:           r.CreatedAt.Time,
		UpdatedAt:           r.UpdatedAt.Time,
	}
}

func exportJobRow(j *core.ExportJob) ExportJob {
	return ExportJob{
		ID:                  toPgUUID(j.ID),
		AppLabel:            j.AppLabel,
		Model:               j.Model,
		Resource:            j.Resource,
		Format:              j.Format,
		File:                j.File,
		Queryset:            j.Queryset,
		EmailOnCompletion:   j.EmailOnCompletion,
		SiteOfOrigin:        j.SiteOfOrigin,
		Owner:               j.Owner,
		OwnerEmail:          j.OwnerEmail,
		ProcessingInitiated: toPgTime(j.ProcessingInitiated),
		JobStatus:           j.JobStatus,
		CreatedAt:           pgtype.Timestamptz{Time: j.CreatedAt, Valid: true},
		UpdatedAt:           pgtype.Timestamptz{Time: j.UpdatedAt, Valid: true},
	}
}

func exportJobFromRow(r ExportJob) *core.ExportJob {
	return &core.ExportJob{
		ID:                  uuid.UUID(r.ID.Bytes),
		AppLabel:            r.AppLabel,
		Model:               r.Model,
		Resource:            r.Resource,
		Format:              r.Format,
		File:                r.File,
		Queryset:            r.Queryset,
		EmailOnCompletion:   r.EmailOnCompletion,
		SiteOfOrigin:        r.SiteOfOrigin,
		Owner:               r.Owner,
		OwnerEmail:          r.OwnerEmail,
		ProcessingInitiated: fromPgTime(r.ProcessingInitiated),
		JobStatus:           r.JobStatus,
		CreatedAt:           r.CreatedAt.Time,
		UpdatedAt:           r.UpdatedAt.Time,
	}
}
