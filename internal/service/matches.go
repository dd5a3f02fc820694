package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/metrics"
	"tft-ladder/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type MatchOptions struct {
	// PlayerLimit caps how many players are visited, highest LP first. Zero visits all.
	PlayerLimit      int
	MatchesPerPlayer int
	Concurrency      int
}

func (o MatchOptions) withDefaults() MatchOptions {
	if o.MatchesPerPlayer <= 0 || o.MatchesPerPlayer > constants.MaxMatchesPerPlayer {
		o.MatchesPerPlayer = constants.MaxMatchesPerPlayer
	}
	if o.Concurrency <= 0 {
		o.Concurrency = constants.DefaultConcurrency
	}
	if o.PlayerLimit < 0 {
		o.PlayerLimit = 0
	}
	return o
}

// MatchService pulls recent match history for tracked players, archiving each
// match once and recording every tracked participant in the ledger.
type MatchService struct {
	runner
	riot    RiotAPI
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.HistoryRepository
}

func NewMatchService(riot RiotAPI, players *repository.PlayerRepository, matches *repository.MatchRepository, history *repository.HistoryRepository, runs *repository.RunRepository, m *metrics.Metrics, logger zerolog.Logger) *MatchService {
	return &MatchService{
		runner:  newRunner(runs, m, logger.With().Str("service", "matches").Logger()),
		riot:    riot,
		players: players,
		matches: matches,
		history: history,
	}
}

// matchPass holds the state shared by the workers of one run.
type matchPass struct {
	counters *runCounters
	tracked  map[string]bool
	inflight singleflight.Group
	perPage  int
}

func (s *MatchService) Collect(ctx context.Context, opts MatchOptions) (*RunResult, error) {
	opts = opts.withDefaults()

	return s.track(ctx, domain.RunMatches, func(ctx context.Context, c *runCounters) error {
		log := zerolog.Ctx(ctx)

		all, err := s.players.ListTop(ctx, 0)
		if err != nil {
			return err
		}
		pass := &matchPass{
			counters: c,
			tracked:  make(map[string]bool, len(all)),
			perPage:  opts.MatchesPerPlayer,
		}
		for _, p := range all {
			pass.tracked[p.Puuid] = true
		}

		queue := all
		if opts.PlayerLimit > 0 && opts.PlayerLimit < len(queue) {
			queue = queue[:opts.PlayerLimit]
		}
		log.Info().Int("players", len(queue)).Int("tracked", len(all)).Int("concurrency", opts.Concurrency).Msg("collecting match history")

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for _, p := range queue {
			if gCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				err := s.collectPlayer(gCtx, pass, p.Puuid)
				if isSkip(err) {
					c.failed.Add(1)
					log.Warn().Err(err).Str("puuid", p.Puuid).Msg("player skipped")
					return nil
				}
				if err != nil {
					return err
				}
				if done := c.players.Add(1); done%constants.ProgressLogEvery == 0 {
					log.Info().Int64("done", done).Int("total", len(queue)).Int64("matches", c.matches.Load()).Msg("match collection progress")
				}
				return nil
			})
		}
		return g.Wait()
	})
}

func (s *MatchService) collectPlayer(ctx context.Context, pass *matchPass, puuid string) error {
	log := zerolog.Ctx(ctx).With().Str("puuid", puuid).Logger()

	var ids []string
	err := s.call(ctx, pass.counters, func(ctx context.Context) error {
		var err error
		ids, err = s.riot.GetMatchIDs(ctx, puuid, pass.perPage)
		return err
	})
	if err != nil {
		return skip(ctx, fmt.Errorf("failed to fetch match ids for %s: %w", puuid, err))
	}

	pending, err := s.history.UnfetchedFor(ctx, puuid, ids)
	if err != nil {
		return err
	}
	unknown, err := s.matches.FilterUnknown(ctx, pending)
	if err != nil {
		return err
	}
	log.Debug().Int("listed", len(ids)).Int("pending", len(pending)).Int("unarchived", len(unknown)).Msg("match ids checked against ledger")

	unarchived := make(map[string]bool, len(unknown))
	for _, matchID := range unknown {
		unarchived[matchID] = true
	}

	for _, matchID := range pending {
		var payload *domain.MatchPayload
		err := domain.ErrNotFound
		if !unarchived[matchID] {
			payload, err = s.stored(ctx, matchID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			payload, err = s.archive(ctx, pass, matchID)
		}
		if isSkip(err) {
			log.Warn().Err(err).Str("match_id", matchID).Msg("match skipped")
			continue
		}
		if err != nil {
			return err
		}
		if err := s.link(ctx, pass, puuid, matchID, payload); err != nil {
			return err
		}
	}
	return nil
}

// stored parses the payload of an already archived match.
func (s *MatchService) stored(ctx context.Context, matchID string) (*domain.MatchPayload, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	payload, err := domain.ParseMatchPayload(match.Payload)
	if err != nil {
		return nil, skip(ctx, err)
	}
	return payload, nil
}

// archive fetches and stores a match that was not archived when the player's
// list was checked. Concurrent requests for one id share a single fetch, and
// a match archived by another worker meanwhile is not fetched again.
func (s *MatchService) archive(ctx context.Context, pass *matchPass, matchID string) (*domain.MatchPayload, error) {
	v, err, _ := pass.inflight.Do(matchID, func() (any, error) {
		payload, err := s.stored(ctx, matchID)
		if !errors.Is(err, domain.ErrNotFound) {
			return payload, err
		}

		var raw json.RawMessage
		err = s.call(ctx, pass.counters, func(ctx context.Context) error {
			var err error
			raw, err = s.riot.GetMatch(ctx, matchID)
			return err
		})
		if err != nil {
			return nil, skip(ctx, fmt.Errorf("failed to fetch match %s: %w", matchID, err))
		}

		match, payload, err := domain.MatchFromPayload(matchID, raw)
		if err != nil {
			return nil, skip(ctx, err)
		}
		var inserted bool
		err = s.store(ctx, func(ctx context.Context) error {
			var err error
			inserted, err = s.matches.InsertIfAbsent(ctx, match)
			return err
		})
		if errors.Is(err, domain.ErrValidation) {
			return nil, skip(ctx, err)
		}
		if err != nil {
			return nil, err
		}

		s.metrics.MatchStored(inserted)
		if inserted {
			pass.counters.matches.Add(1)
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MatchPayload), nil
}

// link records the match for every tracked participant. The requesting player
// is always recorded, with an unknown placement if the payload omits them.
func (s *MatchService) link(ctx context.Context, pass *matchPass, puuid, matchID string, payload *domain.MatchPayload) error {
	requesterSeen := false
	for _, participant := range payload.ParticipantIDs() {
		if !pass.tracked[participant] {
			continue
		}
		if participant == puuid {
			requesterSeen = true
		}
		if err := s.record(ctx, participant, matchID, validPlacement(payload.Placement(participant))); err != nil {
			return err
		}
	}
	if requesterSeen {
		return nil
	}
	return s.record(ctx, puuid, matchID, nil)
}

func (s *MatchService) record(ctx context.Context, puuid, matchID string, placement *int) error {
	var created bool
	err := s.store(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.history.RecordFetch(ctx, puuid, matchID, placement)
		return err
	})
	if errors.Is(err, domain.ErrReferential) {
		// player dropped off the ladder mid-run
		zerolog.Ctx(ctx).Debug().Err(err).Str("puuid", puuid).Str("match_id", matchID).Msg("ledger write skipped")
		return nil
	}
	if err != nil {
		return err
	}
	if created {
		s.metrics.LedgerRecorded()
	}
	return nil
}

func validPlacement(placement *int) *int {
	if placement == nil || domain.ValidatePlacement(placement) != nil {
		return nil
	}
	return placement
}
