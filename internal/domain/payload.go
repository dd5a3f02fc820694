package domain

import (
	"encoding/json"
	"fmt"
)

// MatchPayload is the subset of the upstream match document the collector
// reads. The full document is archived untouched.
type MatchPayload struct {
	Metadata struct {
		MatchID      string   `json:"match_id"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Info struct {
		GameDatetime int64    `json:"game_datetime"`
		GameLength   *float64 `json:"game_length"`
		SetNumber    *int     `json:"tft_set_number"`
		QueueID      *int     `json:"queue_id"`
		Participants []struct {
			Puuid     string `json:"puuid"`
			Placement int    `json:"placement"`
		} `json:"participants"`
	} `json:"info"`
}

func ParseMatchPayload(raw json.RawMessage) (*MatchPayload, error) {
	var p MatchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ValidationError{Field: "match_data", Reason: err.Error()}
	}
	return &p, nil
}

// MatchFromPayload builds an archive row from a raw upstream document.
func MatchFromPayload(matchID string, raw json.RawMessage) (*Match, *MatchPayload, error) {
	p, err := ParseMatchPayload(raw)
	if err != nil {
		return nil, nil, err
	}
	if p.Metadata.MatchID != "" && p.Metadata.MatchID != matchID {
		return nil, nil, invalid("match_id", "payload is for %s, requested %s", p.Metadata.MatchID, matchID)
	}
	return &Match{
		MatchID:      matchID,
		Payload:      raw,
		GameDatetime: p.Info.GameDatetime,
		GameLength:   p.Info.GameLength,
		SetNumber:    p.Info.SetNumber,
		QueueID:      p.Info.QueueID,
	}, p, nil
}

// ParticipantIDs merges metadata and info participant lists without duplicates.
func (p *MatchPayload) ParticipantIDs() []string {
	seen := make(map[string]bool, len(p.Metadata.Participants))
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range p.Metadata.Participants {
		add(id)
	}
	for _, part := range p.Info.Participants {
		add(part.Puuid)
	}
	return out
}

func (p *MatchPayload) Placement(puuid string) *int {
	for _, part := range p.Info.Participants {
		if part.Puuid == puuid && part.Placement > 0 {
			placement := part.Placement
			return &placement
		}
	}
	return nil
}

func (p *MatchPayload) String() string {
	return fmt.Sprintf("match %s (%d participants)", p.Metadata.MatchID, len(p.ParticipantIDs()))
}
