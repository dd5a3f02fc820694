package repository_test

import (
	"encoding/json"
	"sort"
	"testing"
	"tft-ladder/internal/database/databasetest"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/repository"
	"time"

	"github.com/rs/zerolog"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type repos struct {
	clock   *databasetest.Clock
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.HistoryRepository
	runs    *repository.RunRepository
}

func newRepos(t *testing.T) *repos {
	sqlDB := databasetest.Open(t)
	queries := db.New(sqlDB)
	clock := databasetest.NewClock(epoch, time.Second)
	logger := zerolog.Nop()

	return &repos{
		clock:   clock,
		players: repository.NewPlayerRepository(sqlDB, queries, clock.Now, logger),
		matches: repository.NewMatchRepository(sqlDB, queries, clock.Now, logger),
		history: repository.NewHistoryRepository(sqlDB, queries, clock.Now, logger),
		runs:    repository.NewRunRepository(sqlDB, queries, clock.Now, "test-collector", logger),
	}
}

func player(puuid, tier string, lp int) *domain.Player {
	return &domain.Player{Puuid: puuid, Tier: tier, LeaguePoints: lp, Rank: "I", Wins: 10, Losses: 5}
}

// payload builds a minimal upstream document; placements maps puuid to finish.
func payload(matchID string, gameTime int64, set int, placements map[string]int) json.RawMessage {
	ids := make([]string, 0, len(placements))
	for id := range placements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	participants := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, map[string]any{"puuid": id, "placement": placements[id]})
	}
	doc := map[string]any{
		"metadata": map[string]any{"match_id": matchID, "participants": ids},
		"info": map[string]any{
			"game_datetime":  gameTime,
			"game_length":    1800.5,
			"tft_set_number": set,
			"queue_id":       1100,
			"tft_game_type":  "standard",
			"participants":   participants,
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func match(matchID string, gameTime int64, set int, placements map[string]int) *domain.Match {
	m, _, err := domain.MatchFromPayload(matchID, payload(matchID, gameTime, set, placements))
	if err != nil {
		panic(err)
	}
	return m
}

func intp(v int) *int { return &v }
