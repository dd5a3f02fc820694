package db

import (
	"context"
	"time"
)

const runColumns = `id, collection_type, status, players_processed, matches_fetched, api_calls_made, error_message, started_at, completed_at, collector_id`

func scanRun(row interface{ Scan(...interface{}) error }) (DataCollectionLog, error) {
	var i DataCollectionLog
	err := row.Scan(
		&i.ID,
		&i.CollectionType,
		&i.Status,
		&i.PlayersProcessed,
		&i.MatchesFetched,
		&i.ApiCallsMade,
		&i.ErrorMessage,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CollectorID,
	)
	return i, err
}

const createRun = `-- name: CreateRun :one
INSERT INTO data_collection_log (collection_type, status, started_at, collector_id)
VALUES (?, 'started', ?, ?)
RETURNING id
`

type CreateRunParams struct {
	CollectionType string
	StartedAt      time.Time
	CollectorID    *string
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createRun, arg.CollectionType, arg.StartedAt, arg.CollectorID).Scan(&id)
	return id, err
}

const finishRun = `-- name: FinishRun :execrows
UPDATE data_collection_log
SET status = ?,
    players_processed = ?,
    matches_fetched = ?,
    api_calls_made = ?,
    error_message = ?,
    completed_at = ?
WHERE id = ? AND status = 'started'
`

type FinishRunParams struct {
	Status           string
	PlayersProcessed *int64
	MatchesFetched   *int64
	ApiCallsMade     *int64
	ErrorMessage     *string
	CompletedAt      time.Time
	ID               int64
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, finishRun,
		arg.Status,
		arg.PlayersProcessed,
		arg.MatchesFetched,
		arg.ApiCallsMade,
		arg.ErrorMessage,
		arg.CompletedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getRun = `-- name: GetRun :one
SELECT ` + runColumns + ` FROM data_collection_log WHERE id = ?
`

func (q *Queries) GetRun(ctx context.Context, id int64) (DataCollectionLog, error) {
	return scanRun(q.db.QueryRowContext(ctx, getRun, id))
}

const listRecentRuns = `-- name: ListRecentRuns :many
SELECT ` + runColumns + ` FROM data_collection_log
ORDER BY started_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentRuns(ctx context.Context, limit int64) ([]DataCollectionLog, error) {
	return q.queryRuns(ctx, listRecentRuns, limit)
}

const listStaleRuns = `-- name: ListStaleRuns :many
SELECT ` + runColumns + ` FROM data_collection_log
WHERE status = 'started' AND started_at < ?
ORDER BY started_at ASC, id ASC
`

func (q *Queries) ListStaleRuns(ctx context.Context, startedBefore time.Time) ([]DataCollectionLog, error) {
	return q.queryRuns(ctx, listStaleRuns, startedBefore)
}

func (q *Queries) queryRuns(ctx context.Context, query string, args ...interface{}) ([]DataCollectionLog, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DataCollectionLog
	for rows.Next() {
		i, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
