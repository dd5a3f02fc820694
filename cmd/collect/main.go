package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"tft-ladder/internal/config"
	"tft-ladder/internal/constants"
	fxmodules "tft-ladder/internal/fx"
	"tft-ladder/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const usage = `usage: collect [flags] leaderboard|matches|relink|all

  leaderboard  refresh the ladder snapshot for the apex tiers
  matches      fetch recent match history for tracked players
  relink       link tracked players to archived matches without API calls
  all          run the three passes in order

flags:
`

type collectors struct {
	Ladder  *service.LadderService
	Matches *service.MatchService
	Relink  *service.RelinkService
	Config  *config.Config
	Logger  zerolog.Logger
}

func main() {
	var (
		players     = flag.Int("players", -1, "Max players to visit in the matches pass, 0 for all (default from config)")
		perPlayer   = flag.Int("matches", 0, "Match ids to request per player, at most 20 (default from config)")
		concurrency = flag.Int("concurrency", 0, "Players processed in parallel (default from config)")
		tiers       = flag.String("tiers", "", "Comma-separated tiers for the leaderboard pass (default all)")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)
	switch command {
	case "leaderboard", "matches", "relink", "all":
	default:
		flag.Usage()
		os.Exit(2)
	}

	var c collectors
	app := fx.New(
		fxmodules.Module,
		fxmodules.CollectorModule,
		fx.NopLogger,
		fx.Populate(&c.Ladder, &c.Matches, &c.Relink, &c.Config, &c.Logger),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := service.MatchOptions{
		PlayerLimit:      c.Config.PlayerLimit,
		MatchesPerPlayer: c.Config.MatchesPerPlayer,
		Concurrency:      c.Config.FetchConcurrency,
	}
	if *players >= 0 {
		opts.PlayerLimit = *players
	}
	if *perPlayer > 0 {
		opts.MatchesPerPlayer = min(*perPlayer, constants.MaxMatchesPerPlayer)
	}
	if *concurrency > 0 {
		opts.Concurrency = *concurrency
	}

	err := run(ctx, c, command, splitTiers(*tiers), opts)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancelStop()
	if stopErr := app.Stop(stopCtx); stopErr != nil {
		c.Logger.Warn().Err(stopErr).Msg("shutdown incomplete")
	}

	if err != nil {
		c.Logger.Error().Err(err).Str("command", command).Msg("collection failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, c collectors, command string, tiers []string, opts service.MatchOptions) error {
	var results []*service.RunResult
	var errs []error

	step := func(result *service.RunResult, err error) {
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if command == "leaderboard" || command == "all" {
		step(c.Ladder.Collect(ctx, tiers))
		if len(errs) > 0 && command == "all" {
			return errors.Join(errs...)
		}
	}
	if command == "matches" || command == "all" {
		step(c.Matches.Collect(ctx, opts))
	}
	if (command == "relink" || command == "all") && ctx.Err() == nil {
		step(c.Relink.Collect(ctx))
	}

	for _, r := range results {
		c.Logger.Info().
			Int64("run_id", r.RunID).
			Str("type", string(r.Type)).
			Str("status", string(r.Status)).
			Int("players_processed", r.Counters.PlayersProcessed).
			Int("matches_fetched", r.Counters.MatchesFetched).
			Int("api_calls", r.Counters.APICalls).
			Int("failed_players", r.FailedPlayers).
			Msg("run summary")
	}
	return errors.Join(errs...)
}

func splitTiers(s string) []string {
	var tiers []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tiers = append(tiers, t)
		}
	}
	return tiers
}
