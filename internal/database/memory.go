package database

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/google/uuid"
)

// ErrTxDone is returned by a memory transaction after commit or rollback.
var ErrTxDone = errors.New("transaction already closed")

// Memory is an in-process JobStore and RecordStore with the same semantics
// as Store. Used by tests and by the CLI without a database.
type Memory struct {
	mu      sync.RWMutex
	imports map[uuid.UUID]core.ImportJob
	exports map[uuid.UUID]core.ExportJob
	records map[string]map[string]map[string]string // model -> key -> data
	hooks   core.CreateHooks
	now     func() time.Time
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		imports: make(map[uuid.UUID]core.ImportJob),
		exports: make(map[uuid.UUID]core.ExportJob),
		records: make(map[string]map[string]map[string]string),
		now:     time.Now,
	}
}

func (m *Memory) SetCreateHooks(hooks core.CreateHooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = hooks
}

func (m *Memory) CreateImportJob(ctx context.Context, job *core.ImportJob) error {
	m.mu.Lock()
	if _, exists := m.imports[job.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("insert import job: duplicate id %s", job.ID)
	}
	m.imports[job.ID] = *job
	hook := m.hooks.ImportJobCreated
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, job); err != nil {
			return fmt.Errorf("import job %s created: %w", job.ID, err)
		}
	}
	return nil
}

func (m *Memory) GetImportJob(ctx context.Context, id uuid.UUID) (*core.ImportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.imports[id]
	if !ok {
		return nil, fmt.Errorf("%w: import job %s", core.ErrJobNotFound, id)
	}
	return &job, nil
}

func (m *Memory) SaveImportJob(ctx context.Context, job *core.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.imports[job.ID]; !ok {
		return fmt.Errorf("%w: import job %s", core.ErrJobNotFound, job.ID)
	}
	job.UpdatedAt = m.now()
	m.imports[job.ID] = *job
	return nil
}

func (m *Memory) ListImportJobs(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	m.mu.RLock()
	jobs := make([]*core.ImportJob, 0, len(m.imports))
	for _, j := range m.imports {
		j := j
		jobs = append(jobs, &j)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs[:min(len(jobs), int(limitOrDefault(limit)))], nil
}

func (m *Memory) CreateExportJob(ctx context.Context, job *core.ExportJob) error {
	m.mu.Lock()
	if _, exists := m.exports[job.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("insert export job: duplicate id %s", job.ID)
	}
	m.exports[job.ID] = *job
	hook := m.hooks.ExportJobCreated
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, job); err != nil {
			return fmt.Errorf("export job %s created: %w", job.ID, err)
		}
	}
	return nil
}

func (m *Memory) GetExportJob(ctx context.Context, id uuid.UUID) (*core.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.exports[id]
	if !ok {
		return nil, fmt.Errorf("%w: export job %s", core.ErrJobNotFound, id)
	}
	return &job, nil
}

func (m *Memory) SaveExportJob(ctx context.Context, job *core.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exports[job.ID]; !ok {
		return fmt.Errorf("%w: export job %s", core.ErrJobNotFound, job.ID)
	}
	job.UpdatedAt = m.now()
	m.exports[job.ID] = *job
	return nil
}

func (m *Memory) ListExportJobs(ctx context.Context, limit int) ([]*core.ExportJob, error) {
	m.mu.RLock()
	jobs := make([]*core.ExportJob, 0, len(m.exports))
	for _, j := range m.exports {
		j := j
		jobs = append(jobs, &j)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs[:min(len(jobs), int(limitOrDefault(limit)))], nil
}

// PutRecord stores a record outside any transaction. Used to seed data.
func (m *Memory) PutRecord(model, key string, data map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[model] == nil {
		m.records[model] = make(map[string]map[string]string)
	}
	m.records[model][key] = maps.Clone(data)
}

// Record returns a committed record.
func (m *Memory) Record(model, key string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[model][key]
	return maps.Clone(data), ok
}

// RecordCount returns the number of committed records of model.
func (m *Memory) RecordCount(model string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[model])
}

func (m *Memory) Records(ctx context.Context, model string, keys []string) ([]resource.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []resource.Record
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		data, ok := m.records[model][k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, resource.Record{Key: k, Data: maps.Clone(data)})
	}
	return out, nil
}

// Begin starts a transaction. Writes are buffered and applied on Commit.
func (m *Memory) Begin(ctx context.Context) (resource.RecordTx, error) {
	return &memoryTx{store: m, writes: make(map[string]map[string]map[string]string)}, nil
}

type memoryTx struct {
	store      *Memory
	writes     map[string]map[string]map[string]string
	undo       []undoEntry
	savepoints []memorySavepoint
	done       bool
}

// undoEntry restores one buffered write. existed is false when the key had
// no buffered write before.
type undoEntry struct {
	model, key string
	prev       map[string]string
	existed    bool
}

// memorySavepoint marks the undo log length when it was taken.
type memorySavepoint struct {
	name string
	mark int
}

func (t *memoryTx) Get(ctx context.Context, model, key string) (map[string]string, bool, error) {
	if t.done {
		return nil, false, ErrTxDone
	}
	if data, ok := t.writes[model][key]; ok {
		return maps.Clone(data), true, nil
	}
	data, ok := t.store.Record(model, key)
	return data, ok, nil
}

func (t *memoryTx) Put(ctx context.Context, model, key string, data map[string]string) error {
	if t.done {
		return ErrTxDone
	}
	if t.writes[model] == nil {
		t.writes[model] = make(map[string]map[string]string)
	}
	if len(t.savepoints) > 0 {
		prev, existed := t.writes[model][key]
		t.undo = append(t.undo, undoEntry{model: model, key: key, prev: prev, existed: existed})
	}
	t.writes[model][key] = maps.Clone(data)
	return nil
}

func (t *memoryTx) Savepoint(ctx context.Context, name string) error {
	if t.done {
		return ErrTxDone
	}
	t.savepoints = append(t.savepoints, memorySavepoint{name: name, mark: len(t.undo)})
	return nil
}

func (t *memoryTx) find(name string) (int, error) {
	for i := len(t.savepoints) - 1; i >= 0; i-- {
		if t.savepoints[i].name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("savepoint %q does not exist", name)
}

func (t *memoryTx) RollbackTo(ctx context.Context, name string) error {
	if t.done {
		return ErrTxDone
	}
	i, err := t.find(name)
	if err != nil {
		return err
	}
	mark := t.savepoints[i].mark
	for n := len(t.undo) - 1; n >= mark; n-- {
		e := t.undo[n]
		if !e.existed {
			delete(t.writes[e.model], e.key)
		} else {
			t.writes[e.model][e.key] = e.prev
		}
	}
	t.undo = t.undo[:mark]
	t.savepoints = t.savepoints[:i+1]
	return nil
}

func (t *memoryTx) Release(ctx context.Context, name string) error {
	if t.done {
		return ErrTxDone
	}
	i, err := t.find(name)
	if err != nil {
		return err
	}
	t.savepoints = t.savepoints[:i]
	if len(t.savepoints) == 0 {
		t.undo = t.undo[:0]
	}
	return nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	for model, recs := range t.writes {
		for k, v := range recs {
			t.store.PutRecord(model, k, v)
		}
	}
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	t.done = true
	t.writes = nil
	return nil
}
