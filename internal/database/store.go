package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultListLimit caps List calls that pass a non-positive limit.
const DefaultListLimit = 100

// Store is the Postgres implementation of core.JobStore and
// resource.RecordStore.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
	now  func() time.Time

	mu    sync.RWMutex
	hooks core.CreateHooks
}

// NewStore creates a store over pool. Run Migrate first.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: New(pool), now: time.Now}
}

// SetCreateHooks registers the callbacks run after each insert.
func (s *Store) SetCreateHooks(hooks core.CreateHooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = hooks
}

func (s *Store) createHooks() core.CreateHooks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks
}

func limitOrDefault(limit int) int32 {
	if limit <= 0 {
		return DefaultListLimit
	}
	return int32(limit)
}

// CreateImportJob inserts job and then runs the import-created hook.
func (s *Store) CreateImportJob(ctx context.Context, job *core.ImportJob) error {
	row, err := s.q.InsertImportJob(ctx, importJobRow(job))
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	*job = *importJobFromRow(row)

	if hook := s.createHooks().ImportJobCreated; hook != nil {
		if err := hook(ctx, job); err != nil {
			return fmt.Errorf("import job %s created: %w", job.ID, err)
		}
	}
	return nil
}

func (s *Store) GetImportJob(ctx context.Context, id uuid.UUID) (*core.ImportJob, error) {
	row, err := s.q.GetImportJob(ctx, toPgUUID(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: import job %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return importJobFromRow(row), nil
}

func (s *Store) SaveImportJob(ctx context.Context, job *core.ImportJob) error {
	job.UpdatedAt = s.now()
	n, err := s.q.UpdateImportJob(ctx, importJobRow(job))
	if err != nil {
		return fmt.Errorf("save import job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: import job %s", core.ErrJobNotFound, job.ID)
	}
	return nil
}

func (s *Store) ListImportJobs(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	rows, err := s.q.ListImportJobs(ctx, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	jobs := make([]*core.ImportJob, len(rows))
	for i, r := range rows {
		jobs[i] = importJobFromRow(r)
	}
	return jobs, nil
}

// CreateExportJob inserts job and then runs the export-created hook.
func (s *Store) CreateExportJob(ctx context.Context, job *core.ExportJob) error {
	row, err := s.q.InsertExportJob(ctx, exportJobRow(job))
	if err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	*job = *exportJobFromRow(row)

	if hook := s.createHooks().ExportJobCreated; hook != nil {
		if err := hook(ctx, job); err != nil {
			return fmt.Errorf("export job %s created: %w", job.ID, err)
		}
	}
	return nil
}

func (s *Store) GetExportJob(ctx context.Context, id uuid.UUID) (*core.ExportJob, error) {
	row, err := s.q.GetExportJob(ctx, toPgUUID(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: export job %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return exportJobFromRow(row), nil
}

func (s *Store) SaveExportJob(ctx context.Context, job *core.ExportJob) error {
	job.UpdatedAt = s.now()
	n, err := s.q.UpdateExportJob(ctx, exportJobRow(job))
	if err != nil {
		return fmt.Errorf("save export job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: export job %s", core.ErrJobNotFound, job.ID)
	}
	return nil
}

func (s *Store) ListExportJobs(ctx context.Context, limit int) ([]*core.ExportJob, error) {
	rows, err := s.q.ListExportJobs(ctx, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	jobs := make([]*core.ExportJob, len(rows))
	for i, r := range rows {
		jobs[i] = exportJobFromRow(r)
	}
	return jobs, nil
}

// Records returns the records of model with the given keys, in key order.
// Unknown keys are skipped.
func (s *Store) Records(ctx context.Context, model string, keys []string) ([]resource.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := s.q.ListRecordsByKeys(ctx, ListRecordsByKeysParams{Model: model, Keys: keys})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	byKey := make(map[string]resource.Record, len(rows))
	for _, r := range rows {
		data, err := decodeData(r.Data)
		if err != nil {
			return nil, fmt.Errorf("record %s/%s: %w", model, r.Key, err)
		}
		byKey[r.Key] = resource.Record{Key: r.Key, Data: data}
	}

	out := make([]resource.Record, 0, len(byKey))
	for _, k := range keys {
		if rec, ok := byKey[k]; ok {
			out = append(out, rec)
			delete(byKey, k)
		}
	}
	return out, nil
}

// Begin starts the transaction an import runs in.
func (s *Store) Begin(ctx context.Context) (resource.RecordTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recordTx{tx: tx, q: s.q.WithTx(tx)}, nil
}

type recordTx struct {
	tx pgx.Tx
	q  *Queries
}

func (t *recordTx) Get(ctx context.Context, model, key string) (map[string]string, bool, error) {
	r, err := t.q.GetRecord(ctx, GetRecordParams{Model: model, Key: key})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, err := decodeData(r.Data)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (t *recordTx) Put(ctx context.Context, model, key string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return t.q.UpsertRecord(ctx, UpsertRecordParams{Model: model, Key: key, Data: raw})
}

func (t *recordTx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (t *recordTx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (t *recordTx) Release(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (t *recordTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *recordTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func decodeData(raw []byte) (map[string]string, error) {
	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return data, nil
}

var (
	_ core.JobStore        = (*Store)(nil)
	_ resource.RecordStore = (*Store)(nil)
	_ core.JobStore        = (*Memory)(nil)
	_ resource.RecordStore = (*Memory)(nil)
)
