package service

import (
	"context"
	"testing"
	"tft-ladder/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRelinkService(t *testing.T) {
	Convey("Given an archived match with a player who was not tracked yet", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		f.track("P1", 500)
		f.riot.addMatch("M1", 1_700_000_000_000, map[string]int{"P1": 2, "P3": 6})
		f.riot.addMatch("M2", 1_700_000_100_000, map[string]int{"P3": 0})
		for _, id := range []string{"M1", "M2"} {
			m, _, err := domain.MatchFromPayload(id, f.riot.matches[id])
			So(err, ShouldBeNil)
			_, err = f.matches.InsertIfAbsent(ctx, m)
			So(err, ShouldBeNil)
		}
		_, err := f.history.RecordFetch(ctx, "P1", "M1", intp(2))
		So(err, ShouldBeNil)

		f.track("P3", 300)

		Convey("When the relink pass runs", func() {
			result, err := f.relink.Collect(ctx)
			So(err, ShouldBeNil)

			Convey("Then the new player is linked to the archived matches", func() {
				records, err := f.history.ListRecentForPlayer(ctx, "P3", 10)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 2)

				byMatch := map[string]*int{}
				for _, r := range records {
					byMatch[r.MatchID] = r.Placement
				}
				So(*byMatch["M1"], ShouldEqual, 6)
				So(byMatch["M2"], ShouldBeNil)
			})

			Convey("Then no upstream call is made and the run is audited", func() {
				So(result.Type, ShouldEqual, domain.RunRelink)
				So(result.Status, ShouldEqual, domain.RunCompleted)
				So(result.Counters.APICalls, ShouldEqual, 0)
				So(result.Counters.PlayersProcessed, ShouldEqual, 2)
				So(len(f.riot.calls), ShouldEqual, 0)
			})

			Convey("Then running it again links nothing", func() {
				_, err := f.relink.Collect(ctx)
				So(err, ShouldBeNil)
				n, err := f.history.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})
	})
}

func intp(v int) *int { return &v }
