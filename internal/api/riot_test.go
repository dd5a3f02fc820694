package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"tft-ladder/internal/api"
	"tft-ladder/internal/config"
	"tft-ladder/internal/domain"
	"time"

	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"
)

const leagueBody = `{"leagueId":"L1","tier":"CHALLENGER","name":"Sion's Sentinels","queue":"RANKED_TFT",
"entries":[{"puuid":"p1","leaguePoints":1500,"rank":"I","wins":80,"losses":60,"hotStreak":true},
{"puuid":"p2","leaguePoints":1320,"rank":"I","wins":70,"losses":75,"veteran":true}]}`

const matchBody = `{"metadata":{"match_id":"NA1_1","participants":["p1"]},"info":{"game_datetime":1700000000000,"participants":[{"puuid":"p1","placement":2}]}}`

type recorded struct {
	path  string
	query string
	token string
}

func newClient(handler http.HandlerFunc) (*api.RiotClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	cfg := &config.Config{RiotAPIKey: "RGAPI-test", RegionalBaseURL: srv.URL, PlatformBaseURL: srv.URL}
	client, err := api.NewRiotClient(cfg, nil, zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return client, srv
}

func TestRiotClient(t *testing.T) {
	Convey("Given a Riot client against a fake upstream", t, func() {
		ctx := context.Background()
		var (
			mu   sync.Mutex
			last recorded
		)
		lastRequest := func() recorded {
			mu.Lock()
			defer mu.Unlock()
			return last
		}

		client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			last = recorded{path: r.URL.Path, query: r.URL.RawQuery, token: r.Header.Get("X-Riot-Token")}
			mu.Unlock()
			w.Header().Set("X-App-Rate-Limit", "20:1,100:120")
			w.Header().Set("X-App-Rate-Limit-Count", "1:1,7:120")

			switch r.URL.Path {
			case "/tft/league/v1/challenger":
				fmt.Fprint(w, leagueBody)
			case "/tft/match/v1/matches/by-puuid/p1/ids":
				fmt.Fprint(w, `["NA1_3","NA1_2","NA1_1"]`)
			case "/tft/match/v1/matches/NA1_1":
				fmt.Fprint(w, matchBody)
			case "/tft/match/v1/matches/NA1_throttled":
				w.Header().Set("Retry-After", "3")
				w.Header().Set("X-Rate-Limit-Type", "application")
				w.WriteHeader(http.StatusTooManyRequests)
			case "/tft/match/v1/matches/NA1_down":
				w.WriteHeader(http.StatusServiceUnavailable)
			case "/tft/match/v1/matches/NA1_forbidden":
				w.WriteHeader(http.StatusForbidden)
			case "/tft/match/v1/matches/by-puuid/expired/ids":
				w.WriteHeader(http.StatusUnauthorized)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		Reset(srv.Close)

		Convey("When the challenger league is fetched", func() {
			league, err := client.GetLeague(ctx, "challenger")

			Convey("Then entries map to players of that tier", func() {
				So(err, ShouldBeNil)
				So(lastRequest().token, ShouldEqual, "RGAPI-test")
				So(len(league.Entries), ShouldEqual, 2)

				p := league.Entries[0].Player(league.Tier)
				So(p.Puuid, ShouldEqual, "p1")
				So(p.Tier, ShouldEqual, domain.TierChallenger)
				So(p.LeaguePoints, ShouldEqual, 1500)
				So(p.HotStreak, ShouldBeTrue)
				So(p.Validate(), ShouldBeNil)
			})

			Convey("Then the rate headers are tracked", func() {
				info := client.GetRateLimitInfo()
				So(info.AppLimit, ShouldResemble, []api.RateWindow{
					{Count: 20, Window: time.Second},
					{Count: 100, Window: 120 * time.Second},
				})
				So(info.AppCount[1].Count, ShouldEqual, 7)
			})
		})

		Convey("When a tier has no league endpoint", func() {
			_, err := client.GetLeague(ctx, "diamond")
			So(errors.Is(err, domain.ErrValidation), ShouldBeTrue)
		})

		Convey("When match ids are fetched", func() {
			ids, err := client.GetMatchIDs(ctx, "p1", 50)

			Convey("Then the count is capped and ids are returned in order", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"NA1_3", "NA1_2", "NA1_1"})
				So(lastRequest().query, ShouldEqual, "start=0&count=20")
			})
		})

		Convey("When a match is fetched", func() {
			raw, err := client.GetMatch(ctx, "NA1_1")

			Convey("Then the document is returned untouched", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, matchBody)
			})
		})

		Convey("When the match does not exist", func() {
			_, err := client.GetMatch(ctx, "NA1_missing")
			So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, domain.ErrTransient), ShouldBeFalse)
		})

		Convey("When upstream throttles", func() {
			_, err := client.GetMatch(ctx, "NA1_throttled")

			Convey("Then a transient rate limit error carries Retry-After", func() {
				var rl *api.RateLimitError
				So(errors.As(err, &rl), ShouldBeTrue)
				So(rl.RetryAfter, ShouldEqual, 3*time.Second)
				So(rl.LimitType, ShouldEqual, "application")
				So(errors.Is(err, domain.ErrTransient), ShouldBeTrue)

				delay, ok := api.RetryDelay(err)
				So(ok, ShouldBeTrue)
				So(delay, ShouldEqual, 3*time.Second)
			})
		})

		Convey("When upstream is unavailable", func() {
			_, err := client.GetMatch(ctx, "NA1_down")
			So(errors.Is(err, domain.ErrTransient), ShouldBeTrue)
		})

		Convey("When the key is rejected", func() {
			_, err := client.GetMatch(ctx, "NA1_forbidden")

			var se *api.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusForbidden)
			So(errors.Is(err, domain.ErrTransient), ShouldBeFalse)
			So(errors.Is(err, domain.ErrUnauthorized), ShouldBeTrue)

			_, err = client.GetMatchIDs(ctx, "expired", 5)
			So(errors.Is(err, domain.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When upstream fails for other reasons", func() {
			_, err := client.GetMatch(ctx, "NA1_down")
			So(errors.Is(err, domain.ErrUnauthorized), ShouldBeFalse)
			_, err = client.GetMatch(ctx, "NA1_missing")
			So(errors.Is(err, domain.ErrUnauthorized), ShouldBeFalse)
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := client.GetMatch(cancelled, "NA1_1")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestNewRiotClient(t *testing.T) {
	Convey("Given no API key", t, func() {
		for _, key := range []string{"", "   "} {
			client, err := api.NewRiotClient(&config.Config{RiotAPIKey: key}, nil, zerolog.Nop())

			So(client, ShouldBeNil)
			So(errors.Is(err, domain.ErrValidation), ShouldBeTrue)
		}
	})
}

func TestParseRateWindows(t *testing.T) {
	Convey("Malformed pairs are skipped", t, func() {
		So(api.ParseRateWindows("20:1, bad, 5:x,100:120"), ShouldResemble, []api.RateWindow{
			{Count: 20, Window: time.Second},
			{Count: 100, Window: 120 * time.Second},
		})
		So(api.ParseRateWindows(""), ShouldBeNil)
	})
}
