package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type ImportJob struct {
	ID                  pgtype.UUID
	File                string
	Model               string
	Format              string
	ProcessingInitiated pgtype.Timestamptz
	Imported            pgtype.Timestamptz
	Errors              string
	JobStatus           string
	ChangeSummary       string
	Author              string
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

type ExportJob struct {
	ID                  pgtype.UUID
	AppLabel            string
	Model               string
	Resource            string
	Format              string
	File                string
	Queryset            string
	EmailOnCompletion   bool
	SiteOfOrigin        string
	Owner               string
	OwnerEmail          string
	ProcessingInitiated pgtype.Timestamptz
	JobStatus           string
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

type Record struct {
	Model string
	Key   string
	Data  []byte
}
