package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/database"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	now     domain.Clock
	logger  zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, queries *db.Queries, clock domain.Clock, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		queries: queries,
		db:      sqlDB,
		now:     clock,
		logger:  logger,
	}
}

var jsonPathPattern = regexp.MustCompile(`^\$(\.[A-Za-z_][A-Za-z0-9_]*|\[[0-9]+\])+$`)

// InsertIfAbsent archives the match unless its id is already known, and
// reports whether this call stored it. A duplicate is not an error. The
// participant index is written in the same transaction as the match row.
func (r *MatchRepository) InsertIfAbsent(ctx context.Context, match *domain.Match) (bool, error) {
	if err := match.Validate(); err != nil {
		return false, err
	}
	payload, err := domain.ParseMatchPayload(match.Payload)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", database.Classify(err))
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	n, err := qtx.InsertMatchIfAbsent(ctx, db.InsertMatchIfAbsentParams{
		MatchID:      match.MatchID,
		MatchData:    string(match.Payload),
		GameDatetime: match.GameDatetime,
		GameLength:   match.GameLength,
		TftSetNumber: toInt64Ptr(match.SetNumber),
		QueueID:      toInt64Ptr(match.QueueID),
		FetchedAt:    r.now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert match %s: %w", match.MatchID, database.Classify(err))
	}
	if n == 0 {
		r.logger.Debug().Str("match_id", match.MatchID).Msg("match already archived")
		return false, nil
	}

	for _, puuid := range payload.ParticipantIDs() {
		if err := qtx.InsertMatchParticipant(ctx, match.MatchID, puuid); err != nil {
			return false, fmt.Errorf("failed to index participant %s of %s: %w", puuid, match.MatchID, database.Classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit match %s: %w", match.MatchID, database.Classify(err))
	}
	return true, nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	match, err := r.queries.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, database.Classify(err))
	}
	m := toDomainMatch(match)
	return &m, nil
}

// GetByDateRange returns matches whose game started in [start, end), newest first.
func (r *MatchRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.Match, error) {
	matches, err := r.queries.ListMatchesByDateRange(ctx, db.ListMatchesByDateRangeParams{
		Start: start.UnixMilli(),
		End:   end.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches by date: %w", database.Classify(err))
	}
	return toDomainMatches(matches), nil
}

func (r *MatchRepository) GetBySet(ctx context.Context, setNumber int) ([]domain.Match, error) {
	matches, err := r.queries.ListMatchesBySet(ctx, int64(setNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for set %d: %w", setNumber, database.Classify(err))
	}
	return toDomainMatches(matches), nil
}

// FindByParticipant looks players up through the participant index rather
// than scanning payloads.
func (r *MatchRepository) FindByParticipant(ctx context.Context, puuid string, limit int) ([]domain.Match, error) {
	matches, err := r.queries.ListMatchesByParticipant(ctx, db.ListMatchesByParticipantParams{
		Puuid: puuid,
		Limit: clampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", puuid, database.Classify(err))
	}
	return toDomainMatches(matches), nil
}

// SearchByPath matches a scalar at a JSON path inside the payload, e.g.
// ("$.info.tft_game_type", "standard").
func (r *MatchRepository) SearchByPath(ctx context.Context, path string, value any, limit int) ([]domain.Match, error) {
	if !jsonPathPattern.MatchString(path) {
		return nil, &domain.ValidationError{Field: "path", Reason: fmt.Sprintf("unsupported JSON path %q", path)}
	}
	matches, err := r.queries.ListMatchesByPath(ctx, db.ListMatchesByPathParams{
		Path:  path,
		Value: value,
		Limit: clampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search matches by %s: %w", path, database.Classify(err))
	}
	return toDomainMatches(matches), nil
}

// FilterUnknown returns the ids not yet archived, deduplicated, in input order.
func (r *MatchRepository) FilterUnknown(ctx context.Context, matchIDs []string) ([]string, error) {
	ids := dedupe(matchIDs)
	known := make(map[string]bool, len(ids))

	for i := 0; i < len(ids); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		existing, err := r.queries.ListExistingMatchIDs(ctx, ids[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to check archived matches: %w", database.Classify(err))
		}
		for _, id := range existing {
			known[id] = true
		}
	}

	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

// Participants lists every puuid found in the archived payload, tracked or not.
func (r *MatchRepository) Participants(ctx context.Context, matchID string) ([]string, error) {
	ids, err := r.queries.ListMatchParticipantIDs(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of %s: %w", matchID, database.Classify(err))
	}
	return ids, nil
}

func (r *MatchRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", database.Classify(err))
	}
	return n, nil
}

// Delete purges the match together with its ledger rows and participant index.
func (r *MatchRepository) Delete(ctx context.Context, matchID string) (bool, error) {
	n, err := r.queries.DeleteMatch(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to delete match %s: %w", matchID, database.Classify(err))
	}
	r.logger.Info().Str("match_id", matchID).Bool("deleted", n > 0).Msg("match purged")
	return n > 0, nil
}

func toDomainMatches(matches []db.RawMatch) []domain.Match {
	result := make([]domain.Match, len(matches))
	for i, m := range matches {
		result[i] = toDomainMatch(m)
	}
	return result
}

func clampLimit(limit int) int64 {
	if limit <= 0 {
		return constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		return constants.MaxListLimit
	}
	return int64(limit)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
