package service

import (
	"context"
	"fmt"
	"tft-ladder/internal/api"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/metrics"
	"tft-ladder/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LadderService refreshes the ladder snapshot from the apex-tier leagues.
type LadderService struct {
	runner
	riot    RiotAPI
	players *repository.PlayerRepository
}

func NewLadderService(riot RiotAPI, players *repository.PlayerRepository, runs *repository.RunRepository, m *metrics.Metrics, logger zerolog.Logger) *LadderService {
	return &LadderService{
		runner:  newRunner(runs, m, logger.With().Str("service", "ladder").Logger()),
		riot:    riot,
		players: players,
	}
}

// Collect fetches every requested tier concurrently and writes the snapshot
// in one batch. Any tier failing fails the run and nothing is written.
func (s *LadderService) Collect(ctx context.Context, tiers []string) (*RunResult, error) {
	if len(tiers) == 0 {
		tiers = domain.Tiers
	}
	normalized := make([]string, len(tiers))
	for i, t := range tiers {
		normalized[i] = domain.NormalizeTier(t)
		if !domain.ValidTier(normalized[i]) {
			return nil, &domain.ValidationError{Field: "tier", Reason: fmt.Sprintf("unknown tier %q", t)}
		}
	}

	return s.track(ctx, domain.RunLeaderboard, func(ctx context.Context, c *runCounters) error {
		log := zerolog.Ctx(ctx)
		leagues := make([]*api.LeagueList, len(normalized))

		g, gCtx := errgroup.WithContext(ctx)
		for i, tier := range normalized {
			g.Go(func() error {
				return s.call(gCtx, c, func(ctx context.Context) error {
					league, err := s.riot.GetLeague(ctx, tier)
					if err != nil {
						return fmt.Errorf("failed to fetch %s league: %w", tier, err)
					}
					leagues[i] = league
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("failed to fetch leagues")
			return err
		}

		players := playersFromLeagues(normalized, leagues, log)
		var inserted, updated int
		err := s.store(ctx, func(ctx context.Context) error {
			var err error
			inserted, updated, err = s.players.UpsertBatch(ctx, players)
			return err
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to store ladder snapshot")
			return err
		}

		c.players.Add(int64(len(players)))
		s.metrics.PlayersUpserted(inserted, updated)
		log.Info().Int("inserted", inserted).Int("updated", updated).Msg("ladder snapshot stored")
		return nil
	})
}

// playersFromLeagues keeps the first occurrence of a puuid, so a player seen
// in two leagues mid-promotion takes the higher tier.
func playersFromLeagues(tiers []string, leagues []*api.LeagueList, log *zerolog.Logger) []domain.Player {
	seen := make(map[string]bool)
	var players []domain.Player

	for i, league := range leagues {
		if league == nil {
			continue
		}
		tier := tiers[i]
		if league.Tier != "" {
			tier = league.Tier
		}
		for _, entry := range league.Entries {
			if entry.Puuid == "" {
				log.Warn().Str("tier", tier).Str("summoner_id", entry.SummonerID).Msg("league entry without puuid skipped")
				continue
			}
			if seen[entry.Puuid] {
				continue
			}
			p := entry.Player(tier)
			if err := p.Validate(); err != nil {
				log.Warn().Err(err).Str("puuid", entry.Puuid).Msg("invalid league entry skipped")
				continue
			}
			seen[entry.Puuid] = true
			players = append(players, p)
		}
	}
	return players
}
