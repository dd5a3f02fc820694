package api

import "tft-ladder/internal/domain"

type LeagueList struct {
	LeagueID string       `json:"leagueId"`
	Tier     string       `json:"tier"`
	Name     string       `json:"name"`
	Queue    string       `json:"queue"`
	Entries  []LeagueItem `json:"entries"`
}

type LeagueItem struct {
	Puuid        string `json:"puuid"`
	SummonerID   string `json:"summonerId"`
	LeaguePoints int    `json:"leaguePoints"`
	Rank         string `json:"rank"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
	FreshBlood   bool   `json:"freshBlood"`
	HotStreak    bool   `json:"hotStreak"`
}

// Player maps a league entry onto the ladder snapshot. The tier comes from
// the enclosing league, entries do not carry it.
func (e LeagueItem) Player(tier string) domain.Player {
	return domain.Player{
		Puuid:        e.Puuid,
		LeaguePoints: e.LeaguePoints,
		Tier:         domain.NormalizeTier(tier),
		Rank:         e.Rank,
		Wins:         e.Wins,
		Losses:       e.Losses,
		Veteran:      e.Veteran,
		Inactive:     e.Inactive,
		FreshBlood:   e.FreshBlood,
		HotStreak:    e.HotStreak,
	}
}
