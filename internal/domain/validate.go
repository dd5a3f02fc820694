package domain

import (
	"encoding/json"
	"strings"
)

const (
	MaxPuuidLen     = 78
	MaxMatchIDLen   = 50
	MaxTierLen      = 20
	MaxRunTypeLen   = 50
	MaxPlacement    = 8
	MaxErrorMessage = 4000
)

const (
	TierChallenger  = "CHALLENGER"
	TierGrandmaster = "GRANDMASTER"
	TierMaster      = "MASTER"
)

// Tiers lists the tracked ladder tiers, highest first.
var Tiers = []string{TierChallenger, TierGrandmaster, TierMaster}

var divisions = map[string]bool{"I": true, "II": true, "III": true, "IV": true}

func ValidTier(tier string) bool {
	for _, t := range Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// NormalizeTier upper-cases and trims a tier label; it does not validate.
func NormalizeTier(tier string) string {
	return strings.ToUpper(strings.TrimSpace(tier))
}

func ValidatePuuid(puuid string) error {
	if puuid == "" {
		return invalid("puuid", "must not be empty")
	}
	if len(puuid) > MaxPuuidLen {
		return invalid("puuid", "longer than %d characters", MaxPuuidLen)
	}
	return nil
}

func ValidateMatchID(matchID string) error {
	if matchID == "" {
		return invalid("match_id", "must not be empty")
	}
	if len(matchID) > MaxMatchIDLen {
		return invalid("match_id", "longer than %d characters", MaxMatchIDLen)
	}
	return nil
}

func ValidatePlacement(placement *int) error {
	if placement == nil {
		return nil
	}
	if *placement < 1 || *placement > MaxPlacement {
		return invalid("placement", "must be between 1 and %d, got %d", MaxPlacement, *placement)
	}
	return nil
}

func (p *Player) Validate() error {
	if err := ValidatePuuid(p.Puuid); err != nil {
		return err
	}
	if p.Tier == "" {
		return invalid("tier", "must not be empty")
	}
	if !ValidTier(p.Tier) {
		return invalid("tier", "unknown tier %q", p.Tier)
	}
	if p.Rank != "" && !divisions[p.Rank] {
		return invalid("rank", "unknown division %q", p.Rank)
	}
	if p.LeaguePoints < 0 {
		return invalid("league_points", "must not be negative")
	}
	if p.Wins < 0 || p.Losses < 0 {
		return invalid("wins/losses", "must not be negative")
	}
	return nil
}

func (m *Match) Validate() error {
	if err := ValidateMatchID(m.MatchID); err != nil {
		return err
	}
	if m.GameDatetime <= 0 {
		return invalid("game_datetime", "is required")
	}
	if len(m.Payload) == 0 {
		return invalid("match_data", "is required")
	}
	if !json.Valid(m.Payload) {
		return invalid("match_data", "is not valid JSON")
	}
	return nil
}

func ValidateRunType(t RunType) error {
	switch t {
	case RunLeaderboard, RunMatches, RunRelink:
		return nil
	}
	return invalid("collection_type", "unknown run type %q", t)
}

func ValidateFinalStatus(s RunStatus) error {
	if !s.Terminal() {
		return invalid("status", "%q is not a terminal status", s)
	}
	return nil
}
