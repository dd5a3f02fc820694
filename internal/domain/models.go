package domain

import (
	"encoding/json"
	"time"
)

type Player struct {
	Puuid        string
	LeaguePoints int
	Tier         string
	Rank         string // division, "I".."IV"; empty when unknown
	Wins         int
	Losses       int
	Veteran      bool
	Inactive     bool
	FreshBlood   bool
	HotStreak    bool
	FetchedAt    time.Time
	UpdatedAt    time.Time
}

type Match struct {
	MatchID      string
	Payload      json.RawMessage
	GameDatetime int64 // epoch millis as reported upstream
	GameLength   *float64
	SetNumber    *int
	QueueID      *int
	FetchedAt    time.Time
}

// CollectionRecord marks a (player, match) pair as processed.
type CollectionRecord struct {
	Puuid     string
	MatchID   string
	Placement *int
	FetchedAt time.Time
}

type RunType string

const (
	RunLeaderboard RunType = "leaderboard"
	RunMatches     RunType = "matches"
	RunRelink      RunType = "relink"
)

type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

type RunCounters struct {
	PlayersProcessed int
	MatchesFetched   int
	APICalls         int
}

type CollectionRun struct {
	ID           int64
	Type         RunType
	Status       RunStatus
	Counters     *RunCounters // nil until the run finishes
	ErrorMessage string
	CollectorID  string
	StartedAt    time.Time
	CompletedAt  *time.Time
}
