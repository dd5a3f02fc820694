package repository

import (
	"context"
	"database/sql"
	"fmt"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/database"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"

	"github.com/rs/zerolog"
)

// HistoryRepository is the collection ledger: one row per (player, match)
// pair that has been processed. It is the only record of what is already done.
type HistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	now     domain.Clock
	logger  zerolog.Logger
}

func NewHistoryRepository(sqlDB *sql.DB, queries *db.Queries, clock domain.Clock, logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		queries: queries,
		db:      sqlDB,
		now:     clock,
		logger:  logger,
	}
}

func (r *HistoryRepository) HasFetched(ctx context.Context, puuid, matchID string) (bool, error) {
	exists, err := r.queries.HistoryExists(ctx, puuid, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger %s/%s: %w", puuid, matchID, database.Classify(err))
	}
	return exists, nil
}

// RecordFetch stores the pair and reports whether it was new. Re-recording is
// a no-op. Both the player and the match must already exist, otherwise the
// error matches domain.ErrReferential.
func (r *HistoryRepository) RecordFetch(ctx context.Context, puuid, matchID string, placement *int) (bool, error) {
	if err := domain.ValidatePuuid(puuid); err != nil {
		return false, err
	}
	if err := domain.ValidateMatchID(matchID); err != nil {
		return false, err
	}
	if err := domain.ValidatePlacement(placement); err != nil {
		return false, err
	}

	n, err := r.queries.InsertHistory(ctx, db.InsertHistoryParams{
		Puuid:     puuid,
		MatchID:   matchID,
		Placement: toInt64Ptr(placement),
		FetchedAt: r.now(),
	})
	if err != nil {
		err = database.Classify(err)
		r.logger.Warn().Err(err).Str("puuid", puuid).Str("match_id", matchID).Msg("failed to record fetch")
		return false, fmt.Errorf("failed to record %s/%s: %w", puuid, matchID, err)
	}
	return n > 0, nil
}

// UnfetchedFor returns the candidates with no ledger row for this player,
// deduplicated and in input order.
func (r *HistoryRepository) UnfetchedFor(ctx context.Context, puuid string, candidates []string) ([]string, error) {
	ids := dedupe(candidates)
	recorded := make(map[string]bool, len(ids))

	for i := 0; i < len(ids); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		done, err := r.queries.ListRecordedMatchIDs(ctx, puuid, ids[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger for %s: %w", puuid, database.Classify(err))
		}
		for _, id := range done {
			recorded[id] = true
		}
	}

	var pending []string
	for _, id := range ids {
		if !recorded[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

func (r *HistoryRepository) ListRecentForPlayer(ctx context.Context, puuid string, limit int) ([]domain.CollectionRecord, error) {
	rows, err := r.queries.ListHistoryByPuuid(ctx, db.ListHistoryByPuuidParams{
		Puuid: puuid,
		Limit: clampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger for %s: %w", puuid, database.Classify(err))
	}
	return toDomainRecords(rows), nil
}

// ListParticipants returns the tracked players recorded against the match.
func (r *HistoryRepository) ListParticipants(ctx context.Context, matchID string) ([]domain.CollectionRecord, error) {
	rows, err := r.queries.ListHistoryByMatchID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger for match %s: %w", matchID, database.Classify(err))
	}
	return toDomainRecords(rows), nil
}

// Unlinked lists archived matches the player appears in without a ledger
// row. FetchedAt is left zero; the pairs have not been recorded yet.
func (r *HistoryRepository) Unlinked(ctx context.Context, puuid string, limit int) ([]domain.CollectionRecord, error) {
	rows, err := r.queries.ListUnlinkedMatches(ctx, db.ListUnlinkedMatchesParams{
		Puuid: puuid,
		Limit: clampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find unlinked matches for %s: %w", puuid, database.Classify(err))
	}

	result := make([]domain.CollectionRecord, len(rows))
	for i, row := range rows {
		result[i] = domain.CollectionRecord{
			Puuid:     puuid,
			MatchID:   row.MatchID,
			Placement: toIntPtr(row.Placement),
		}
	}
	return result, nil
}

func (r *HistoryRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger: %w", database.Classify(err))
	}
	return n, nil
}

func toDomainRecords(rows []db.PlayerMatchHistory) []domain.CollectionRecord {
	result := make([]domain.CollectionRecord, len(rows))
	for i, h := range rows {
		result[i] = toDomainRecord(h)
	}
	return result
}
