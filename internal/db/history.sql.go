package db

import (
	"context"
	"time"
)

const insertHistory = `-- name: InsertHistory :execrows
INSERT INTO player_match_history (puuid, match_id, placement, fetched_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (puuid, match_id) DO NOTHING
`

type InsertHistoryParams struct {
	Puuid     string
	MatchID   string
	Placement *int64
	FetchedAt time.Time
}

func (q *Queries) InsertHistory(ctx context.Context, arg InsertHistoryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertHistory,
		arg.Puuid,
		arg.MatchID,
		arg.Placement,
		arg.FetchedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const historyExists = `-- name: HistoryExists :one
SELECT EXISTS (SELECT 1 FROM player_match_history WHERE puuid = ? AND match_id = ?)
`

func (q *Queries) HistoryExists(ctx context.Context, puuid, matchID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, historyExists, puuid, matchID).Scan(&exists)
	return exists, err
}

const listHistoryByPuuid = `-- name: ListHistoryByPuuid :many
SELECT puuid, match_id, placement, fetched_at FROM player_match_history
WHERE puuid = ?
ORDER BY fetched_at DESC, match_id DESC
LIMIT ?
`

type ListHistoryByPuuidParams struct {
	Puuid string
	Limit int64
}

func (q *Queries) ListHistoryByPuuid(ctx context.Context, arg ListHistoryByPuuidParams) ([]PlayerMatchHistory, error) {
	return q.queryHistory(ctx, listHistoryByPuuid, arg.Puuid, arg.Limit)
}

const listHistoryByMatchID = `-- name: ListHistoryByMatchID :many
SELECT puuid, match_id, placement, fetched_at FROM player_match_history
WHERE match_id = ?
ORDER BY placement IS NULL, placement, puuid
`

func (q *Queries) ListHistoryByMatchID(ctx context.Context, matchID string) ([]PlayerMatchHistory, error) {
	return q.queryHistory(ctx, listHistoryByMatchID, matchID)
}

func (q *Queries) queryHistory(ctx context.Context, query string, args ...interface{}) ([]PlayerMatchHistory, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerMatchHistory
	for rows.Next() {
		var i PlayerMatchHistory
		if err := rows.Scan(
			&i.Puuid,
			&i.MatchID,
			&i.Placement,
			&i.FetchedAt,
		); err != nil {
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

const listRecordedMatchIDs = `-- name: ListRecordedMatchIDs :many
SELECT match_id FROM player_match_history
WHERE puuid = ? AND match_id IN (/*SLICE:ids*/?)
`

func (q *Queries) ListRecordedMatchIDs(ctx context.Context, puuid string, ids []string) ([]string, error) {
	query, args := expandSlice(listRecordedMatchIDs, "ids", ids, []interface{}{puuid})
	return q.queryStrings(ctx, query, args...)
}

const listUnlinkedMatches = `-- name: ListUnlinkedMatches :many
SELECT p.match_id,
       (SELECT json_extract(j.value, '$.placement')
        FROM json_each(m.match_data, '$.info.participants') AS j
        WHERE json_extract(j.value, '$.puuid') = p.puuid) AS placement
FROM raw_match_participants p
JOIN raw_matches m ON m.match_id = p.match_id
WHERE p.puuid = ?
  AND NOT EXISTS (
      SELECT 1 FROM player_match_history h
      WHERE h.puuid = p.puuid AND h.match_id = p.match_id
  )
ORDER BY m.game_datetime DESC
LIMIT ?
`

type ListUnlinkedMatchesParams struct {
	Puuid string
	Limit int64
}

type ListUnlinkedMatchesRow struct {
	MatchID   string
	Placement *int64
}

// ListUnlinkedMatches finds archived matches the player took part in that
// have no ledger row yet, with the placement read from the payload.
func (q *Queries) ListUnlinkedMatches(ctx context.Context, arg ListUnlinkedMatchesParams) ([]ListUnlinkedMatchesRow, error) {
	rows, err := q.db.QueryContext(ctx, listUnlinkedMatches, arg.Puuid, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListUnlinkedMatchesRow
	for rows.Next() {
		var i ListUnlinkedMatchesRow
		if err := rows.Scan(&i.MatchID, &i.Placement); err != nil {
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

const countHistory = `-- name: CountHistory :one
SELECT COUNT(*) FROM player_match_history
`

func (q *Queries) CountHistory(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countHistory).Scan(&count)
	return count, err
}
