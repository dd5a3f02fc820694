package fx

import (
	"context"
	"database/sql"
	"fmt"
	"tft-ladder/internal/api"
	"tft-ladder/internal/config"
	"tft-ladder/internal/database"
	"tft-ladder/internal/db"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/logger"
	"tft-ladder/internal/metrics"
	"tft-ladder/internal/repository"
	"tft-ladder/internal/server"
	"tft-ladder/internal/service"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideClock() domain.Clock {
	return domain.SystemClock()
}

// ProvideCollectorID names this process in the run audit log.
func ProvideCollectorID(logger zerolog.Logger) (domain.CollectorID, error) {
	id, err := gonanoid.New(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate collector id: %w", err)
	}
	logger.Debug().Str("collector_id", id).Msg("collector id assigned")
	return domain.CollectorID(id), nil
}

// closeDatabase closes the pool once every other component has stopped.
func closeDatabase(lc fx.Lifecycle, sqlDB *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
}

// Module is the storage core shared by both binaries.
var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Provide(ProvideClock),
	fx.Provide(ProvideCollectorID),
	fx.Invoke(closeDatabase),
	// metrics
	fx.Provide(metrics.NewRegistry),
	fx.Provide(metrics.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewHistoryRepository),
	fx.Provide(repository.NewRunRepository),
)

var CollectorModule = fx.Options(
	// api client
	fx.Provide(fx.Annotate(api.NewRiotClient, fx.As(new(service.RiotAPI)))),
	// svc
	fx.Provide(service.NewLadderService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewRelinkService),
)

var ServerModule = fx.Options(
	fx.Provide(server.NewMonitorServer),
)
