package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"tft-ladder/internal/api"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/database"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/metrics"
	"tft-ladder/internal/repository"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// RiotAPI is the upstream surface the collectors need.
type RiotAPI interface {
	GetLeague(ctx context.Context, tier string) (*api.LeagueList, error)
	GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (json.RawMessage, error)
}

// RunResult summarises one finished collection pass.
type RunResult struct {
	RunID         int64
	Type          domain.RunType
	Status        domain.RunStatus
	Counters      domain.RunCounters
	FailedPlayers int
}

type runCounters struct {
	players atomic.Int64
	matches atomic.Int64
	calls   atomic.Int64
	failed  atomic.Int64
}

func (c *runCounters) snapshot() domain.RunCounters {
	return domain.RunCounters{
		PlayersProcessed: int(c.players.Load()),
		MatchesFetched:   int(c.matches.Load()),
		APICalls:         int(c.calls.Load()),
	}
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(constants.RetryBaseDelay)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(constants.RetryMaxDelay, b)
	return retry.WithMaxRetries(constants.RetryMaxRetries, b)
}

// runner brackets a pass with its audit log entry and retries transient
// upstream failures.
type runner struct {
	runs    *repository.RunRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
	backoff func() retry.Backoff
}

func newRunner(runs *repository.RunRepository, m *metrics.Metrics, logger zerolog.Logger) runner {
	return runner{runs: runs, metrics: m, logger: logger, backoff: defaultBackoff}
}

// track opens the run, executes fn and finishes the run as completed or
// failed. The run is finished even when ctx has been cancelled.
func (r *runner) track(ctx context.Context, runType domain.RunType, fn func(ctx context.Context, c *runCounters) error) (*RunResult, error) {
	runID, err := r.runs.StartRun(ctx, runType)
	if err != nil {
		return nil, err
	}

	log := r.logger.With().Int64("run_id", runID).Str("type", string(runType)).Logger()
	ctx = log.WithContext(ctx)

	start := time.Now()
	var c runCounters
	runErr := fn(ctx, &c)

	result := &RunResult{
		RunID:         runID,
		Type:          runType,
		Status:        domain.RunCompleted,
		Counters:      c.snapshot(),
		FailedPlayers: int(c.failed.Load()),
	}
	errMsg := ""
	if runErr != nil {
		result.Status = domain.RunFailed
		errMsg = runErr.Error()
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	if err := r.runs.FinishRun(finishCtx, runID, result.Status, result.Counters, errMsg); err != nil {
		return result, errors.Join(runErr, err)
	}
	r.metrics.RunFinished(string(runType), string(result.Status))

	log.Info().
		Str("status", string(result.Status)).
		Int("failed_players", result.FailedPlayers).
		Dur("elapsed", time.Since(start)).
		Msg("collection pass finished")

	if runErr != nil {
		return result, fmt.Errorf("%s run %d failed: %w", runType, runID, runErr)
	}
	return result, nil
}

// call performs one upstream request, counting every attempt and retrying
// transient failures. A Retry-After hint is honoured before the backoff.
func (r *runner) call(ctx context.Context, c *runCounters, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		c.calls.Add(1)
		err := fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrTransient) {
			return err
		}
		if delay, ok := api.RetryDelay(err); ok {
			zerolog.Ctx(ctx).Warn().Dur("retry_after", delay).Msg("rate limited by upstream")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		return retry.RetryableError(err)
	})
}

// store retries a storage write that failed on a busy or locked database.
func (r *runner) store(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && database.IsTransient(err) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("storage busy, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

// skipError marks an upstream failure that skips one player or match
// without failing the pass.
type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }
func (e *skipError) Unwrap() error { return e.err }

// skip wraps err unless the pass itself has been cancelled or upstream
// rejected the API key, both of which fail the pass.
func skip(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	return &skipError{err: err}
}

func isSkip(err error) bool {
	var s *skipError
	return errors.As(err, &s)
}
