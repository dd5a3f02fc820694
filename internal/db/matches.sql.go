package db

import (
	"context"
	"time"
)

const matchColumns = `match_id, match_data, game_datetime, game_length, tft_set_number, queue_id, fetched_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (RawMatch, error) {
	var i RawMatch
	err := row.Scan(
		&i.MatchID,
		&i.MatchData,
		&i.GameDatetime,
		&i.GameLength,
		&i.TftSetNumber,
		&i.QueueID,
		&i.FetchedAt,
	)
	return i, err
}

const insertMatchIfAbsent = `-- name: InsertMatchIfAbsent :execrows
INSERT INTO raw_matches (
    match_id, match_data, game_datetime,
    game_length, tft_set_number, queue_id, fetched_at
)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (match_id) DO NOTHING
`

type InsertMatchIfAbsentParams struct {
	MatchID      string
	MatchData    string
	GameDatetime int64
	GameLength   *float64
	TftSetNumber *int64
	QueueID      *int64
	FetchedAt    time.Time
}

func (q *Queries) InsertMatchIfAbsent(ctx context.Context, arg InsertMatchIfAbsentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertMatchIfAbsent,
		arg.MatchID,
		arg.MatchData,
		arg.GameDatetime,
		arg.GameLength,
		arg.TftSetNumber,
		arg.QueueID,
		arg.FetchedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertMatchParticipant = `-- name: InsertMatchParticipant :exec
INSERT INTO raw_match_participants (match_id, puuid)
VALUES (?, ?)
ON CONFLICT (match_id, puuid) DO NOTHING
`

func (q *Queries) InsertMatchParticipant(ctx context.Context, matchID, puuid string) error {
	_, err := q.db.ExecContext(ctx, insertMatchParticipant, matchID, puuid)
	return err
}

const getMatch = `-- name: GetMatch :one
SELECT ` + matchColumns + ` FROM raw_matches WHERE match_id = ?
`

func (q *Queries) GetMatch(ctx context.Context, matchID string) (RawMatch, error) {
	return scanMatch(q.db.QueryRowContext(ctx, getMatch, matchID))
}

const listMatchesByDateRange = `-- name: ListMatchesByDateRange :many
SELECT ` + matchColumns + ` FROM raw_matches
WHERE game_datetime >= ? AND game_datetime < ?
ORDER BY game_datetime DESC, match_id DESC
`

type ListMatchesByDateRangeParams struct {
	Start int64
	End   int64
}

func (q *Queries) ListMatchesByDateRange(ctx context.Context, arg ListMatchesByDateRangeParams) ([]RawMatch, error) {
	return q.queryMatches(ctx, listMatchesByDateRange, arg.Start, arg.End)
}

const listMatchesBySet = `-- name: ListMatchesBySet :many
SELECT ` + matchColumns + ` FROM raw_matches
WHERE tft_set_number = ?
ORDER BY game_datetime DESC, match_id DESC
`

func (q *Queries) ListMatchesBySet(ctx context.Context, setNumber int64) ([]RawMatch, error) {
	return q.queryMatches(ctx, listMatchesBySet, setNumber)
}

const listMatchesByParticipant = `-- name: ListMatchesByParticipant :many
SELECT m.match_id, m.match_data, m.game_datetime, m.game_length, m.tft_set_number, m.queue_id, m.fetched_at
FROM raw_match_participants p
JOIN raw_matches m ON m.match_id = p.match_id
WHERE p.puuid = ?
ORDER BY m.game_datetime DESC, m.match_id DESC
LIMIT ?
`

type ListMatchesByParticipantParams struct {
	Puuid string
	Limit int64
}

func (q *Queries) ListMatchesByParticipant(ctx context.Context, arg ListMatchesByParticipantParams) ([]RawMatch, error) {
	return q.queryMatches(ctx, listMatchesByParticipant, arg.Puuid, arg.Limit)
}

const listMatchesByPath = `-- name: ListMatchesByPath :many
SELECT ` + matchColumns + ` FROM raw_matches
WHERE json_extract(match_data, ?) = ?
ORDER BY game_datetime DESC, match_id DESC
LIMIT ?
`

type ListMatchesByPathParams struct {
	Path  string
	Value interface{}
	Limit int64
}

func (q *Queries) ListMatchesByPath(ctx context.Context, arg ListMatchesByPathParams) ([]RawMatch, error) {
	return q.queryMatches(ctx, listMatchesByPath, arg.Path, arg.Value, arg.Limit)
}

func (q *Queries) queryMatches(ctx context.Context, query string, args ...interface{}) ([]RawMatch, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RawMatch
	for rows.Next() {
		i, err := scanMatch(rows)
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

const listExistingMatchIDs = `-- name: ListExistingMatchIDs :many
SELECT match_id FROM raw_matches WHERE match_id IN (/*SLICE:ids*/?)
`

func (q *Queries) ListExistingMatchIDs(ctx context.Context, ids []string) ([]string, error) {
	query, args := expandSlice(listExistingMatchIDs, "ids", ids, nil)
	return q.queryStrings(ctx, query, args...)
}

const listMatchParticipantIDs = `-- name: ListMatchParticipantIDs :many
SELECT puuid FROM raw_match_participants WHERE match_id = ? ORDER BY puuid
`

func (q *Queries) ListMatchParticipantIDs(ctx context.Context, matchID string) ([]string, error) {
	return q.queryStrings(ctx, listMatchParticipantIDs, matchID)
}

func (q *Queries) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countMatches = `-- name: CountMatches :one
SELECT COUNT(*) FROM raw_matches
`

func (q *Queries) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countMatches).Scan(&count)
	return count, err
}

const deleteMatch = `-- name: DeleteMatch :execrows
DELETE FROM raw_matches WHERE match_id = ?
`

func (q *Queries) DeleteMatch(ctx context.Context, matchID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMatch, matchID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
