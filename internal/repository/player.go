package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/database"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	now     domain.Clock
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, clock domain.Clock, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		now:     clock,
		logger:  logger,
	}
}

func upsertParams(p *domain.Player, now time.Time) db.UpsertPlayerParams {
	return db.UpsertPlayerParams{
		Puuid:        p.Puuid,
		LeaguePoints: int64(p.LeaguePoints),
		Rank:         toStringPtr(p.Rank),
		Wins:         int64(p.Wins),
		Losses:       int64(p.Losses),
		Veteran:      p.Veteran,
		Inactive:     p.Inactive,
		FreshBlood:   p.FreshBlood,
		HotStreak:    p.HotStreak,
		Tier:         p.Tier,
		Now:          now,
	}
}

// normalizePlayer upper-cases the tier so "master" and "MASTER" are one tier.
func normalizePlayer(p domain.Player) domain.Player {
	p.Tier = domain.NormalizeTier(p.Tier)
	return p
}

// Upsert creates the player or overwrites every mutable attribute, leaving
// fetched_at as first recorded. It reports whether the row was created.
func (r *PlayerRepository) Upsert(ctx context.Context, p *domain.Player) (bool, error) {
	player := normalizePlayer(*p)
	if err := player.Validate(); err != nil {
		return false, err
	}

	inserted, err := r.queries.UpsertPlayer(ctx, upsertParams(&player, r.now()))
	if err != nil {
		r.logger.Error().Err(err).Str("puuid", player.Puuid).Msg("failed to upsert player")
		return false, fmt.Errorf("failed to upsert player %s: %w", player.Puuid, database.Classify(err))
	}
	return inserted, nil
}

// UpsertBatch validates every player before writing and applies the batch in
// a single transaction.
func (r *PlayerRepository) UpsertBatch(ctx context.Context, batch []domain.Player) (inserted, updated int, err error) {
	players := make([]domain.Player, len(batch))
	for i := range batch {
		players[i] = normalizePlayer(batch[i])
		if err := players[i].Validate(); err != nil {
			return 0, 0, fmt.Errorf("player %d of batch: %w", i, err)
		}
	}
	if len(players) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", database.Classify(err))
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := r.now()

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(players) {
			end = len(players)
		}

		for _, player := range players[i:end] {
			created, err := qtx.UpsertPlayer(ctx, upsertParams(&player, now))
			if err != nil {
				return 0, 0, fmt.Errorf("failed to upsert player %s: %w", player.Puuid, database.Classify(err))
			}
			if created {
				inserted++
			} else {
				updated++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit player batch: %w", database.Classify(err))
	}

	r.logger.Debug().Int("inserted", inserted).Int("updated", updated).Msg("player batch upserted")
	return inserted, updated, nil
}

func (r *PlayerRepository) Get(ctx context.Context, puuid string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByPuuid(ctx, puuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", puuid, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", puuid, database.Classify(err))
	}

	p := toDomainPlayer(player)
	return &p, nil
}

func (r *PlayerRepository) Exists(ctx context.Context, puuid string) (bool, error) {
	exists, err := r.queries.PlayerExists(ctx, puuid)
	if err != nil {
		return false, fmt.Errorf("failed to check player %s: %w", puuid, database.Classify(err))
	}
	return exists, nil
}

// ListByTier yields the tier's players by league points, highest first. Each
// page is its own short query, so ranging again restarts from the top and no
// read lock outlives a page.
func (r *PlayerRepository) ListByTier(ctx context.Context, tier string, pageSize int) iter.Seq2[domain.Player, error] {
	return func(yield func(domain.Player, error) bool) {
		tier := domain.NormalizeTier(tier)
		if !domain.ValidTier(tier) {
			yield(domain.Player{}, &domain.ValidationError{Field: "tier", Reason: fmt.Sprintf("unknown tier %q", tier)})
			return
		}
		if pageSize <= 0 {
			pageSize = constants.PlayerPageSize
		}

		var last *db.RawPlayer
		for {
			var (
				page []db.RawPlayer
				err  error
			)
			if last == nil {
				page, err = r.queries.ListPlayersByTier(ctx, db.ListPlayersByTierParams{
					Tier:  tier,
					Limit: int64(pageSize),
				})
			} else {
				page, err = r.queries.ListPlayersByTierAfter(ctx, db.ListPlayersByTierAfterParams{
					Tier:             tier,
					AfterLeaguePoint: last.LeaguePoints,
					AfterPuuid:       last.Puuid,
					Limit:            int64(pageSize),
				})
			}
			if err != nil {
				yield(domain.Player{}, fmt.Errorf("failed to list %s players: %w", tier, database.Classify(err)))
				return
			}

			for _, p := range page {
				if !yield(toDomainPlayer(p), nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			last = &page[len(page)-1]
		}
	}
}

// ListTop returns players across all tiers by league points. A non-positive
// limit returns everyone.
func (r *PlayerRepository) ListTop(ctx context.Context, limit int) ([]domain.Player, error) {
	n := int64(limit)
	if limit <= 0 {
		n = -1
	}
	players, err := r.queries.ListTopPlayers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", database.Classify(err))
	}

	result := make([]domain.Player, len(players))
	for i, p := range players {
		result[i] = toDomainPlayer(p)
	}
	return result, nil
}

// FreshnessCutoff reports the most recent ladder update across all players.
// ok is false when no player has been stored yet.
func (r *PlayerRepository) FreshnessCutoff(ctx context.Context) (cutoff time.Time, ok bool, err error) {
	updatedAt, err := r.queries.GetLatestPlayerUpdate(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read freshness: %w", database.Classify(err))
	}
	return updatedAt, true, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountPlayers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", database.Classify(err))
	}
	return n, nil
}

// Delete purges the player; ledger rows for the player go with it.
func (r *PlayerRepository) Delete(ctx context.Context, puuid string) (bool, error) {
	n, err := r.queries.DeletePlayer(ctx, puuid)
	if err != nil {
		return false, fmt.Errorf("failed to delete player %s: %w", puuid, database.Classify(err))
	}
	r.logger.Info().Str("puuid", puuid).Bool("deleted", n > 0).Msg("player purged")
	return n > 0, nil
}
