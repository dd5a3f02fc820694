package domain_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"tft-ladder/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

const samplePayload = `{
  "metadata": {"match_id": "NA1_100", "participants": ["p1", "p2"]},
  "info": {
    "game_datetime": 1700000000000,
    "game_length": 2012.5,
    "tft_set_number": 13,
    "queue_id": 1100,
    "participants": [
      {"puuid": "p1", "placement": 3},
      {"puuid": "p2", "placement": 1},
      {"puuid": "p3", "placement": 8}
    ]
  }
}`

func TestPlayerValidate(t *testing.T) {
	Convey("Given a player", t, func() {
		p := domain.Player{Puuid: "p1", Tier: domain.TierMaster, LeaguePoints: 1500, Rank: "I"}

		Convey("A complete player is valid", func() {
			So(p.Validate(), ShouldBeNil)
		})

		Convey("An empty tier is a validation error", func() {
			p.Tier = ""
			err := p.Validate()
			So(errors.Is(err, domain.ErrValidation), ShouldBeTrue)

			var verr *domain.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Field, ShouldEqual, "tier")
		})

		Convey("A tier outside the tracked set is rejected", func() {
			p.Tier = "DIAMOND"
			So(errors.Is(p.Validate(), domain.ErrValidation), ShouldBeTrue)
		})

		Convey("An over-long puuid is rejected", func() {
			p.Puuid = strings.Repeat("x", domain.MaxPuuidLen+1)
			So(errors.Is(p.Validate(), domain.ErrValidation), ShouldBeTrue)
		})

		Convey("Negative league points are rejected", func() {
			p.LeaguePoints = -1
			So(errors.Is(p.Validate(), domain.ErrValidation), ShouldBeTrue)
		})

		Convey("An unknown division is rejected", func() {
			p.Rank = "V"
			So(errors.Is(p.Validate(), domain.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestMatchValidate(t *testing.T) {
	Convey("Given a match", t, func() {
		m := domain.Match{MatchID: "NA1_1", GameDatetime: 1000, Payload: json.RawMessage(`{}`)}

		So(m.Validate(), ShouldBeNil)

		Convey("Missing game time is a validation error", func() {
			m.GameDatetime = 0
			So(errors.Is(m.Validate(), domain.ErrValidation), ShouldBeTrue)
		})

		Convey("Malformed JSON is a validation error", func() {
			m.Payload = json.RawMessage(`{"info":`)
			So(errors.Is(m.Validate(), domain.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestPlacementBounds(t *testing.T) {
	Convey("Placement must be within the lobby size", t, func() {
		valid, low, high := 8, 0, 9
		So(domain.ValidatePlacement(nil), ShouldBeNil)
		So(domain.ValidatePlacement(&valid), ShouldBeNil)
		So(errors.Is(domain.ValidatePlacement(&low), domain.ErrValidation), ShouldBeTrue)
		So(errors.Is(domain.ValidatePlacement(&high), domain.ErrValidation), ShouldBeTrue)
	})
}

func TestMatchFromPayload(t *testing.T) {
	Convey("Given an upstream match document", t, func() {
		m, p, err := domain.MatchFromPayload("NA1_100", json.RawMessage(samplePayload))
		So(err, ShouldBeNil)

		Convey("Metadata columns are extracted", func() {
			So(m.GameDatetime, ShouldEqual, int64(1700000000000))
			So(*m.GameLength, ShouldEqual, 2012.5)
			So(*m.SetNumber, ShouldEqual, 13)
			So(*m.QueueID, ShouldEqual, 1100)
		})

		Convey("Participants are merged and placements resolved", func() {
			So(p.ParticipantIDs(), ShouldResemble, []string{"p1", "p2", "p3"})
			So(*p.Placement("p2"), ShouldEqual, 1)
			So(p.Placement("nobody"), ShouldBeNil)
		})

		Convey("A payload for a different match id is rejected", func() {
			_, _, err := domain.MatchFromPayload("NA1_999", json.RawMessage(samplePayload))
			So(errors.Is(err, domain.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestRunStatus(t *testing.T) {
	Convey("Only completed and failed are terminal", t, func() {
		So(domain.RunStarted.Terminal(), ShouldBeFalse)
		So(domain.RunCompleted.Terminal(), ShouldBeTrue)
		So(domain.RunFailed.Terminal(), ShouldBeTrue)
		So(errors.Is(domain.ValidateFinalStatus(domain.RunStarted), domain.ErrValidation), ShouldBeTrue)
		So(domain.ValidateRunType("bogus"), ShouldNotBeNil)
	})
}
