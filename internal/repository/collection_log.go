package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/database"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

type RunRepository struct {
	queries     *db.Queries
	db          *sql.DB
	now         domain.Clock
	collectorID domain.CollectorID
	logger      zerolog.Logger
}

func NewRunRepository(sqlDB *sql.DB, queries *db.Queries, clock domain.Clock, collectorID domain.CollectorID, logger zerolog.Logger) *RunRepository {
	return &RunRepository{
		queries:     queries,
		db:          sqlDB,
		now:         clock,
		collectorID: collectorID,
		logger:      logger,
	}
}

// StartRun opens an audit entry in the started state with no counters.
func (r *RunRepository) StartRun(ctx context.Context, runType domain.RunType) (int64, error) {
	if err := domain.ValidateRunType(runType); err != nil {
		return 0, err
	}

	id, err := r.queries.CreateRun(ctx, db.CreateRunParams{
		CollectionType: string(runType),
		StartedAt:      r.now(),
		CollectorID:    toStringPtr(string(r.collectorID)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to start %s run: %w", runType, database.Classify(err))
	}

	r.logger.Info().Int64("run_id", id).Str("type", string(runType)).Msg("started collection run")
	return id, nil
}

// FinishRun moves a started run to its terminal status exactly once. A second
// call returns domain.ErrRunFinished and an unknown id domain.ErrNotFound;
// neither modifies any row.
func (r *RunRepository) FinishRun(ctx context.Context, id int64, status domain.RunStatus, counters domain.RunCounters, errMsg string) error {
	if err := domain.ValidateFinalStatus(status); err != nil {
		return err
	}
	errMsg = truncate(errMsg, domain.MaxErrorMessage)

	players := int64(counters.PlayersProcessed)
	matches := int64(counters.MatchesFetched)
	calls := int64(counters.APICalls)

	n, err := r.queries.FinishRun(ctx, db.FinishRunParams{
		Status:           string(status),
		PlayersProcessed: &players,
		MatchesFetched:   &matches,
		ApiCallsMade:     &calls,
		ErrorMessage:     toStringPtr(errMsg),
		CompletedAt:      r.now(),
		ID:               id,
	})
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, database.Classify(err))
	}

	if n == 0 {
		run, err := r.queries.GetRun(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("run %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read run %d: %w", id, database.Classify(err))
		}
		r.logger.Warn().Int64("run_id", id).Str("status", run.Status).Msg("run finished twice")
		return fmt.Errorf("run %d is %s: %w", id, run.Status, domain.ErrRunFinished)
	}

	r.logger.Info().
		Int64("run_id", id).
		Str("status", string(status)).
		Int("players_processed", counters.PlayersProcessed).
		Int("matches_fetched", counters.MatchesFetched).
		Int("api_calls", counters.APICalls).
		Msg("finished collection run")
	return nil
}

func (r *RunRepository) Get(ctx context.Context, id int64) (*domain.CollectionRun, error) {
	row, err := r.queries.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, database.Classify(err))
	}
	run := toDomainRun(row)
	return &run, nil
}

func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	if limit <= 0 {
		limit = constants.DefaultRunsLimit
	}
	if limit > constants.MaxRunsLimit {
		limit = constants.MaxRunsLimit
	}

	rows, err := r.queries.ListRecentRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", database.Classify(err))
	}
	return toDomainRuns(rows), nil
}

// StaleRuns lists runs still marked started after olderThan has elapsed.
// They are reported, never repaired: a crashed collector is an operator issue.
func (r *RunRepository) StaleRuns(ctx context.Context, olderThan time.Duration) ([]domain.CollectionRun, error) {
	rows, err := r.queries.ListStaleRuns(ctx, r.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale runs: %w", database.Classify(err))
	}
	return toDomainRuns(rows), nil
}

func toDomainRuns(rows []db.DataCollectionLog) []domain.CollectionRun {
	result := make([]domain.CollectionRun, len(rows))
	for i, row := range rows {
		result[i] = toDomainRun(row)
	}
	return result
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
