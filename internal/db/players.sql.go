package db

import (
	"context"
	"time"
)

const playerColumns = `puuid, league_points, rank, wins, losses, veteran, inactive, fresh_blood, hot_streak, tier, fetched_at, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (RawPlayer, error) {
	var i RawPlayer
	err := row.Scan(
		&i.Puuid,
		&i.LeaguePoints,
		&i.Rank,
		&i.Wins,
		&i.Losses,
		&i.Veteran,
		&i.Inactive,
		&i.FreshBlood,
		&i.HotStreak,
		&i.Tier,
		&i.FetchedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertPlayer = `-- name: UpsertPlayer :one
INSERT INTO raw_players (
    puuid, league_points, rank, wins, losses,
    veteran, inactive, fresh_blood, hot_streak,
    tier, fetched_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (puuid) DO UPDATE SET
    league_points = excluded.league_points,
    rank = excluded.rank,
    wins = excluded.wins,
    losses = excluded.losses,
    veteran = excluded.veteran,
    inactive = excluded.inactive,
    fresh_blood = excluded.fresh_blood,
    hot_streak = excluded.hot_streak,
    tier = excluded.tier,
    updated_at = excluded.updated_at
RETURNING fetched_at = updated_at AS inserted
`

type UpsertPlayerParams struct {
	Puuid        string
	LeaguePoints int64
	Rank         *string
	Wins         int64
	Losses       int64
	Veteran      bool
	Inactive     bool
	FreshBlood   bool
	HotStreak    bool
	Tier         string
	Now          time.Time
}

// UpsertPlayer reports true when the row was created by this call.
func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, upsertPlayer,
		arg.Puuid,
		arg.LeaguePoints,
		arg.Rank,
		arg.Wins,
		arg.Losses,
		arg.Veteran,
		arg.Inactive,
		arg.FreshBlood,
		arg.HotStreak,
		arg.Tier,
		arg.Now,
		arg.Now,
	)
	var inserted bool
	err := row.Scan(&inserted)
	return inserted, err
}

const getPlayerByPuuid = `-- name: GetPlayerByPuuid :one
SELECT ` + playerColumns + ` FROM raw_players WHERE puuid = ?
`

func (q *Queries) GetPlayerByPuuid(ctx context.Context, puuid string) (RawPlayer, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByPuuid, puuid))
}

const playerExists = `-- name: PlayerExists :one
SELECT EXISTS (SELECT 1 FROM raw_players WHERE puuid = ?)
`

func (q *Queries) PlayerExists(ctx context.Context, puuid string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, playerExists, puuid).Scan(&exists)
	return exists, err
}

const listPlayersByTier = `-- name: ListPlayersByTier :many
SELECT ` + playerColumns + ` FROM raw_players
WHERE tier = ?
ORDER BY league_points DESC, puuid ASC
LIMIT ?
`

type ListPlayersByTierParams struct {
	Tier  string
	Limit int64
}

func (q *Queries) ListPlayersByTier(ctx context.Context, arg ListPlayersByTierParams) ([]RawPlayer, error) {
	return q.queryPlayers(ctx, listPlayersByTier, arg.Tier, arg.Limit)
}

const listPlayersByTierAfter = `-- name: ListPlayersByTierAfter :many
SELECT ` + playerColumns + ` FROM raw_players
WHERE tier = ?
  AND (league_points < ? OR (league_points = ? AND puuid > ?))
ORDER BY league_points DESC, puuid ASC
LIMIT ?
`

type ListPlayersByTierAfterParams struct {
	Tier             string
	AfterLeaguePoint int64
	AfterPuuid       string
	Limit            int64
}

func (q *Queries) ListPlayersByTierAfter(ctx context.Context, arg ListPlayersByTierAfterParams) ([]RawPlayer, error) {
	return q.queryPlayers(ctx, listPlayersByTierAfter,
		arg.Tier,
		arg.AfterLeaguePoint,
		arg.AfterLeaguePoint,
		arg.AfterPuuid,
		arg.Limit,
	)
}

const listTopPlayers = `-- name: ListTopPlayers :many
SELECT ` + playerColumns + ` FROM raw_players
ORDER BY league_points DESC, puuid ASC
LIMIT ?
`

func (q *Queries) ListTopPlayers(ctx context.Context, limit int64) ([]RawPlayer, error) {
	return q.queryPlayers(ctx, listTopPlayers, limit)
}

func (q *Queries) queryPlayers(ctx context.Context, query string, args ...interface{}) ([]RawPlayer, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RawPlayer
	for rows.Next() {
		i, err := scanPlayer(rows)
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

const getLatestPlayerUpdate = `-- name: GetLatestPlayerUpdate :one
SELECT updated_at FROM raw_players ORDER BY updated_at DESC LIMIT 1
`

func (q *Queries) GetLatestPlayerUpdate(ctx context.Context) (time.Time, error) {
	var updatedAt time.Time
	err := q.db.QueryRowContext(ctx, getLatestPlayerUpdate).Scan(&updatedAt)
	return updatedAt, err
}

const countPlayers = `-- name: CountPlayers :one
SELECT COUNT(*) FROM raw_players
`

func (q *Queries) CountPlayers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPlayers).Scan(&count)
	return count, err
}

const deletePlayer = `-- name: DeletePlayer :execrows
DELETE FROM raw_players WHERE puuid = ?
`

func (q *Queries) DeletePlayer(ctx context.Context, puuid string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePlayer, puuid)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
