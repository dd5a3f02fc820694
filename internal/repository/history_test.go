package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"tft-ladder/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHistoryRepository(t *testing.T) {
	Convey("Given a tracked player and an archived match", t, func() {
		r := newRepos(t)
		ctx := context.Background()

		_, err := r.players.Upsert(ctx, player("P1", domain.TierChallenger, 1200))
		So(err, ShouldBeNil)
		_, err = r.matches.InsertIfAbsent(ctx, match("M1", 1_700_000_000_000, 13, map[string]int{"P1": 3, "X9": 1}))
		So(err, ShouldBeNil)

		Convey("When the fetch is recorded", func() {
			created, err := r.history.RecordFetch(ctx, "P1", "M1", intp(3))
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			Convey("Then the pair is known with its placement", func() {
				fetched, err := r.history.HasFetched(ctx, "P1", "M1")
				So(err, ShouldBeNil)
				So(fetched, ShouldBeTrue)

				records, err := r.history.ListParticipants(ctx, "M1")
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 1)
				So(records[0].Puuid, ShouldEqual, "P1")
				So(*records[0].Placement, ShouldEqual, 3)
			})

			Convey("Then recording again changes nothing", func() {
				created, err := r.history.RecordFetch(ctx, "P1", "M1", intp(3))
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)

				n, err := r.history.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then the archive still holds one match", func() {
				n, _ := r.matches.Count(ctx)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the placement is unknown", func() {
			created, err := r.history.RecordFetch(ctx, "P1", "M1", nil)
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			records, err := r.history.ListRecentForPlayer(ctx, "P1", 10)
			So(err, ShouldBeNil)
			So(records[0].Placement, ShouldBeNil)
		})

		Convey("When the placement is out of range", func() {
			_, err := r.history.RecordFetch(ctx, "P1", "M1", intp(9))
			So(errors.Is(err, domain.ErrValidation), ShouldBeTrue)
		})

		Convey("When the player is not tracked", func() {
			_, err := r.history.RecordFetch(ctx, "X9", "M1", intp(1))

			Convey("Then a referential error is returned", func() {
				So(errors.Is(err, domain.ErrReferential), ShouldBeTrue)
				n, _ := r.history.Count(ctx)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the match is not archived", func() {
			_, err := r.history.RecordFetch(ctx, "P1", "M404", intp(1))
			So(errors.Is(err, domain.ErrReferential), ShouldBeTrue)
		})

		Convey("When many goroutines record the same pair", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				created int
				errs    []error
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := r.history.RecordFetch(ctx, "P1", "M1", intp(3))
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
					}
					if ok {
						created++
					}
				}()
			}
			wg.Wait()

			So(errs, ShouldBeEmpty)
			So(created, ShouldEqual, 1)
		})

		Convey("Given more matches for the player", func() {
			for _, m := range []*domain.Match{
				match("M2", 1_700_000_100_000, 13, map[string]int{"P1": 5}),
				match("M3", 1_700_000_200_000, 13, map[string]int{"P1": 7}),
			} {
				_, err := r.matches.InsertIfAbsent(ctx, m)
				So(err, ShouldBeNil)
			}
			_, err := r.history.RecordFetch(ctx, "P1", "M1", intp(3))
			So(err, ShouldBeNil)
			_, err = r.history.RecordFetch(ctx, "P1", "M2", intp(5))
			So(err, ShouldBeNil)

			Convey("Then UnfetchedFor returns only unrecorded candidates", func() {
				pending, err := r.history.UnfetchedFor(ctx, "P1", []string{"M3", "M1", "M7", "M2", "M3"})
				So(err, ShouldBeNil)
				So(pending, ShouldResemble, []string{"M3", "M7"})
			})

			Convey("Then recent records come newest first", func() {
				records, err := r.history.ListRecentForPlayer(ctx, "P1", 10)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 2)
				So(records[0].MatchID, ShouldEqual, "M2")
				So(records[1].MatchID, ShouldEqual, "M1")
				So(records[0].FetchedAt.After(records[1].FetchedAt), ShouldBeTrue)
			})

			Convey("Then Unlinked finds the archived match missing from the ledger", func() {
				unlinked, err := r.history.Unlinked(ctx, "P1", 10)
				So(err, ShouldBeNil)
				So(len(unlinked), ShouldEqual, 1)
				So(unlinked[0].MatchID, ShouldEqual, "M3")
				So(*unlinked[0].Placement, ShouldEqual, 7)
			})
		})
	})
}
