package resource

import "context"

// Record is one stored row of a target model.
type Record struct {
	Key  string
	Data map[string]string
}

// RecordStore opens transactions against target model storage.
type RecordStore interface {
	Begin(ctx context.Context) (RecordTx, error)
	// Records returns the stored records for keys, in key order as given.
	// Unknown keys are skipped.
	Records(ctx context.Context, model string, keys []string) ([]Record, error)
}

// RecordTx is a transaction with savepoint support. Each imported row runs
// inside its own savepoint so a failed row does not poison the transaction.
type RecordTx interface {
	Get(ctx context.Context, model, key string) (map[string]string, bool, error)
	Put(ctx context.Context, model, key string, data map[string]string) error
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
