package server

import (
	"tft-ladder/internal/domain"
	"time"
)

type RunView struct {
	ID               int64      `json:"id"`
	Type             string     `json:"collection_type"`
	Status           string     `json:"status"`
	PlayersProcessed *int       `json:"players_processed"`
	MatchesFetched   *int       `json:"matches_fetched"`
	APICalls         *int       `json:"api_calls_made"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CollectorID      string     `json:"collector_id,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

type PlayerView struct {
	Puuid        string    `json:"puuid"`
	Tier         string    `json:"tier"`
	Rank         string    `json:"rank,omitempty"`
	LeaguePoints int       `json:"league_points"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Veteran      bool      `json:"veteran"`
	Inactive     bool      `json:"inactive"`
	FreshBlood   bool      `json:"fresh_blood"`
	HotStreak    bool      `json:"hot_streak"`
	FetchedAt    time.Time `json:"fetched_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RecordView struct {
	Puuid     string    `json:"puuid"`
	MatchID   string    `json:"match_id"`
	Placement *int      `json:"placement"`
	FetchedAt time.Time `json:"fetched_at"`
}

type ParticipantsView struct {
	MatchID string       `json:"match_id"`
	All     []string     `json:"participants"`
	Tracked []RecordView `json:"tracked"`
}

type FreshnessView struct {
	HasData     bool       `json:"has_data"`
	LastUpdated *time.Time `json:"last_updated"`
	Players     int64      `json:"players"`
	Matches     int64      `json:"matches"`
	Ledger      int64      `json:"ledger_rows"`
	LastRuns    []RunView  `json:"last_runs"`
}

type ListRunsRequest struct {
	Limit int `json:"limit"`
}

type StaleRunsRequest struct{}

type GetRunRequest struct {
	ID int64 `json:"id"`
}

type RunsResponse struct {
	Runs []RunView `json:"runs"`
}

type FreshnessRequest struct{}

type ListPlayersRequest struct {
	// Tier filters to one tier; empty lists the whole ladder by LP.
	Tier  string `json:"tier"`
	Limit int    `json:"limit"`
}

type PlayersResponse struct {
	Players []PlayerView `json:"players"`
}

type PlayerMatchesRequest struct {
	Puuid string `json:"puuid"`
	Limit int    `json:"limit"`
}

type RecordsResponse struct {
	Records []RecordView `json:"records"`
}

type MatchParticipantsRequest struct {
	MatchID string `json:"match_id"`
}

func toRunView(r domain.CollectionRun) RunView {
	v := RunView{
		ID:           r.ID,
		Type:         string(r.Type),
		Status:       string(r.Status),
		ErrorMessage: r.ErrorMessage,
		CollectorID:  r.CollectorID,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
	if r.Counters != nil {
		v.PlayersProcessed = &r.Counters.PlayersProcessed
		v.MatchesFetched = &r.Counters.MatchesFetched
		v.APICalls = &r.Counters.APICalls
	}
	return v
}

func toRunViews(runs []domain.CollectionRun) []RunView {
	out := make([]RunView, len(runs))
	for i, r := range runs {
		out[i] = toRunView(r)
	}
	return out
}

func toPlayerView(p domain.Player) PlayerView {
	return PlayerView{
		Puuid:        p.Puuid,
		Tier:         p.Tier,
		Rank:         p.Rank,
		LeaguePoints: p.LeaguePoints,
		Wins:         p.Wins,
		Losses:       p.Losses,
		Veteran:      p.Veteran,
		Inactive:     p.Inactive,
		FreshBlood:   p.FreshBlood,
		HotStreak:    p.HotStreak,
		FetchedAt:    p.FetchedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toRecordViews(records []domain.CollectionRecord) []RecordView {
	out := make([]RecordView, len(records))
	for i, r := range records {
		out[i] = RecordView{Puuid: r.Puuid, MatchID: r.MatchID, Placement: r.Placement, FetchedAt: r.FetchedAt}
	}
	return out
}
