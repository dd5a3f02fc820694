package repository

import (
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
)

func toInt64Ptr(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toIntPtr(v *int64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func toStringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDomainPlayer(p db.RawPlayer) domain.Player {
	return domain.Player{
		Puuid:        p.Puuid,
		LeaguePoints: int(p.LeaguePoints),
		Tier:         p.Tier,
		Rank:         derefString(p.Rank),
		Wins:         int(p.Wins),
		Losses:       int(p.Losses),
		Veteran:      p.Veteran,
		Inactive:     p.Inactive,
		FreshBlood:   p.FreshBlood,
		HotStreak:    p.HotStreak,
		FetchedAt:    p.FetchedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDomainMatch(m db.RawMatch) domain.Match {
	return domain.Match{
		MatchID:      m.MatchID,
		Payload:      []byte(m.MatchData),
		GameDatetime: m.GameDatetime,
		GameLength:   m.GameLength,
		SetNumber:    toIntPtr(m.TftSetNumber),
		QueueID:      toIntPtr(m.QueueID),
		FetchedAt:    m.FetchedAt,
	}
}

func toDomainRecord(h db.PlayerMatchHistory) domain.CollectionRecord {
	return domain.CollectionRecord{
		Puuid:     h.Puuid,
		MatchID:   h.MatchID,
		Placement: toIntPtr(h.Placement),
		FetchedAt: h.FetchedAt,
	}
}

func toDomainRun(r db.DataCollectionLog) domain.CollectionRun {
	run := domain.CollectionRun{
		ID:           r.ID,
		Type:         domain.RunType(r.CollectionType),
		Status:       domain.RunStatus(r.Status),
		ErrorMessage: derefString(r.ErrorMessage),
		CollectorID:  derefString(r.CollectorID),
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
	if r.PlayersProcessed != nil || r.MatchesFetched != nil || r.ApiCallsMade != nil {
		run.Counters = &domain.RunCounters{}
		if r.PlayersProcessed != nil {
			run.Counters.PlayersProcessed = int(*r.PlayersProcessed)
		}
		if r.MatchesFetched != nil {
			run.Counters.MatchesFetched = int(*r.MatchesFetched)
		}
		if r.ApiCallsMade != nil {
			run.Counters.APICalls = int(*r.ApiCallsMade)
		}
	}
	return run
}
