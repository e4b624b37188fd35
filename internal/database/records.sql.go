package database

import (
	"context"
)

const getRecord = `-- name: GetRecord :one
SELECT model, key, data FROM record
WHERE model = $1 AND key = $2`

type GetRecordParams struct {
	Model string
	Key   string
}

func (q *Queries) GetRecord(ctx context.Context, arg GetRecordParams) (Record, error) {
	row := q.db.QueryRow(ctx, getRecord, arg.Model, arg.Key)
	var i Record
	err := row.Scan(&i.Model, &i.Key, &i.Data)
	return i, err
}

const upsertRecord = `-- name: UpsertRecord :exec
INSERT INTO record (model, key, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (model, key) DO UPDATE
SET data = EXCLUDED.data, updated_at = now()`

type UpsertRecordParams struct {
	Model string
	Key   string
	Data  []byte
}

func (q *Queries) UpsertRecord(ctx context.Context, arg UpsertRecordParams) error {
	_, err := q.db.Exec(ctx, upsertRecord, arg.Model, arg.Key, arg.Data)
	return err
}

const listRecordsByKeys = `-- name: ListRecordsByKeys :many
SELECT model, key, data FROM record
WHERE model = $1 AND key = ANY($2::text[])`

type ListRecordsByKeysParams struct {
	Model string
	Keys  []string
}

func (q *Queries) ListRecordsByKeys(ctx context.Context, arg ListRecordsByKeysParams) ([]Record, error) {
	rows, err := q.db.Query(ctx, listRecordsByKeys, arg.Model, arg.Keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(&i.Model, &i.Key, &i.Data); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
