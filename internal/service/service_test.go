package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"tft-ladder/internal/api"
	"tft-ladder/internal/database/databasetest"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/repository"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	. "github.com/smartystreets/goconvey/convey"
)

var errUpstream = errors.New("upstream exploded")

// fakeRiot serves canned responses and counts calls per endpoint.
type fakeRiot struct {
	mu       sync.Mutex
	leagues  map[string]*api.LeagueList
	matchIDs map[string][]string
	matches  map[string]json.RawMessage
	failures map[string][]error
	calls    map[string]int
	// onMatch runs after a match document has been served.
	onMatch func(matchID string)
}

func newFakeRiot() *fakeRiot {
	return &fakeRiot{
		leagues:  map[string]*api.LeagueList{},
		matchIDs: map[string][]string{},
		matches:  map[string]json.RawMessage{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

// failNext queues errors returned before the canned response for key.
func (f *fakeRiot) failNext(key string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeRiot) hit(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if queued := f.failures[key]; len(queued) > 0 {
		f.failures[key] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeRiot) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeRiot) GetLeague(_ context.Context, tier string) (*api.LeagueList, error) {
	if err := f.hit("league:" + tier); err != nil {
		return nil, err
	}
	league, ok := f.leagues[tier]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return league, nil
}

func (f *fakeRiot) GetMatchIDs(_ context.Context, puuid string, count int) ([]string, error) {
	if err := f.hit("ids:" + puuid); err != nil {
		return nil, err
	}
	ids := f.matchIDs[puuid]
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

func (f *fakeRiot) GetMatch(_ context.Context, matchID string) (json.RawMessage, error) {
	if err := f.hit("match:" + matchID); err != nil {
		return nil, err
	}
	raw, ok := f.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match: %w", domain.ErrNotFound)
	}
	if f.onMatch != nil {
		f.onMatch(matchID)
	}
	return raw, nil
}

func (f *fakeRiot) addMatch(matchID string, gameTime int64, placements map[string]int) {
	ids := make([]string, 0, len(placements))
	for id := range placements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	participants := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, map[string]any{"puuid": id, "placement": placements[id]})
	}
	raw, _ := json.Marshal(map[string]any{
		"metadata": map[string]any{"match_id": matchID, "participants": ids},
		"info": map[string]any{
			"game_datetime":  gameTime,
			"tft_set_number": 13,
			"participants":   participants,
		},
	})
	f.matches[matchID] = raw
}

type fixture struct {
	riot    *fakeRiot
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.HistoryRepository
	runs    *repository.RunRepository
	ladder  *LadderService
	collect *MatchService
	relink  *RelinkService
}

func fastBackoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
}

func newFixture(t *testing.T) *fixture {
	sqlDB := databasetest.Open(t)
	queries := db.New(sqlDB)
	clock := databasetest.NewClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Second)
	logger := zerolog.Nop()

	f := &fixture{
		riot:    newFakeRiot(),
		players: repository.NewPlayerRepository(sqlDB, queries, clock.Now, logger),
		matches: repository.NewMatchRepository(sqlDB, queries, clock.Now, logger),
		history: repository.NewHistoryRepository(sqlDB, queries, clock.Now, logger),
		runs:    repository.NewRunRepository(sqlDB, queries, clock.Now, "svc-test", logger),
	}
	f.ladder = NewLadderService(f.riot, f.players, f.runs, nil, logger)
	f.collect = NewMatchService(f.riot, f.players, f.matches, f.history, f.runs, nil, logger)
	f.relink = NewRelinkService(f.players, f.history, f.runs, nil, logger)
	f.ladder.backoff = fastBackoff
	f.collect.backoff = fastBackoff
	return f
}

func league(tier string, entries ...api.LeagueItem) *api.LeagueList {
	return &api.LeagueList{Tier: tier, Queue: "RANKED_TFT", Entries: entries}
}

func entry(puuid string, lp int) api.LeagueItem {
	return api.LeagueItem{Puuid: puuid, LeaguePoints: lp, Rank: "I", Wins: 10, Losses: 10}
}

func (f *fixture) track(puuid string, lp int) {
	_, err := f.players.Upsert(context.Background(), &domain.Player{Puuid: puuid, Tier: domain.TierMaster, LeaguePoints: lp, Rank: "I"})
	So(err, ShouldBeNil)
}
