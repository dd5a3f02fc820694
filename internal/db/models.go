package db

import (
	"time"
)

type RawPlayer struct {
	Puuid        string
	LeaguePoints int64
	Rank         *string
	Wins         int64
	Losses       int64
	Veteran      bool
	Inactive     bool
	FreshBlood   bool
	HotStreak    bool
	Tier         string
	FetchedAt    time.Time
	UpdatedAt    time.Time
}

type RawMatch struct {
	MatchID      string
	MatchData    string
	GameDatetime int64
	GameLength   *float64
	TftSetNumber *int64
	QueueID      *int64
	FetchedAt    time.Time
}

type PlayerMatchHistory struct {
	Puuid     string
	MatchID   string
	Placement *int64
	FetchedAt time.Time
}

type DataCollectionLog struct {
	ID               int64
	CollectionType   string
	Status           string
	PlayersProcessed *int64
	MatchesFetched   *int64
	ApiCallsMade     *int64
	ErrorMessage     *string
	StartedAt        time.Time
	CompletedAt      *time.Time
	CollectorID      *string
}
