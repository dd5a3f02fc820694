package service

import (
	"context"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/metrics"
	"tft-ladder/internal/repository"

	"github.com/rs/zerolog"
)

// RelinkService backfills ledger rows for tracked players who appear in
// archived matches they were never linked to, typically because they joined
// the ladder after the match was stored. It makes no upstream calls.
type RelinkService struct {
	runner
	players *repository.PlayerRepository
	history *repository.HistoryRepository
}

func NewRelinkService(players *repository.PlayerRepository, history *repository.HistoryRepository, runs *repository.RunRepository, m *metrics.Metrics, logger zerolog.Logger) *RelinkService {
	return &RelinkService{
		runner:  newRunner(runs, m, logger.With().Str("service", "relink").Logger()),
		players: players,
		history: history,
	}
}

func (s *RelinkService) Collect(ctx context.Context) (*RunResult, error) {
	return s.track(ctx, domain.RunRelink, func(ctx context.Context, c *runCounters) error {
		log := zerolog.Ctx(ctx)
		linked := 0

		for _, tier := range domain.Tiers {
			for player, err := range s.players.ListByTier(ctx, tier, constants.PlayerPageSize) {
				if err != nil {
					return err
				}
				n, err := s.relinkPlayer(ctx, player.Puuid)
				if err != nil {
					return err
				}
				linked += n
				c.players.Add(1)
			}
		}

		log.Info().Int("linked", linked).Int64("players", c.players.Load()).Msg("relink finished")
		return nil
	})
}

func (s *RelinkService) relinkPlayer(ctx context.Context, puuid string) (int, error) {
	linked := 0
	for {
		records, err := s.history.Unlinked(ctx, puuid, constants.MaxListLimit)
		if err != nil {
			return linked, err
		}
		for _, rec := range records {
			placement := rec.Placement
			if domain.ValidatePlacement(placement) != nil {
				placement = nil
			}
			var created bool
			err := s.store(ctx, func(ctx context.Context) error {
				var err error
				created, err = s.history.RecordFetch(ctx, puuid, rec.MatchID, placement)
				return err
			})
			if err != nil {
				return linked, err
			}
			if created {
				linked++
				s.metrics.LedgerRecorded()
			}
		}
		if len(records) < constants.MaxListLimit {
			return linked, nil
		}
	}
}
