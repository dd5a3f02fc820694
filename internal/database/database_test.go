package database_test

import (
	"context"
	"errors"
	"testing"
	"tft-ladder/internal/config"
	"tft-ladder/internal/database"
	"tft-ladder/internal/database/databasetest"
	"tft-ladder/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	for _, driver := range []string{config.DriverMattn, config.DriverModernc} {
		Convey("Given a database opened with the "+driver+" driver", t, func() {
			sqlDB := databasetest.OpenWithDriver(t, driver)
			ctx := context.Background()

			Convey("Then every table exists", func() {
				for _, table := range []string{"raw_players", "raw_matches", "raw_match_participants", "player_match_history", "data_collection_log"} {
					var name string
					err := sqlDB.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
					So(err, ShouldBeNil)
					So(name, ShouldEqual, table)
				}
			})

			Convey("Then foreign keys are enforced on every pooled connection", func() {
				for i := 0; i < 4; i++ {
					conn, err := sqlDB.Conn(ctx)
					So(err, ShouldBeNil)
					var enabled int
					So(conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled), ShouldBeNil)
					So(enabled, ShouldEqual, 1)
					defer conn.Close()
				}
			})

			Convey("Then a ledger row without parents is classified as referential", func() {
				_, err := sqlDB.ExecContext(ctx,
					`INSERT INTO player_match_history (puuid, match_id, fetched_at) VALUES ('ghost', 'NA1_0', '2025-01-01 00:00:00+00:00')`)
				So(err, ShouldNotBeNil)
				So(errors.Is(database.Classify(err), domain.ErrReferential), ShouldBeTrue)
			})

			Convey("Then a NOT NULL violation is classified as validation", func() {
				_, err := sqlDB.ExecContext(ctx,
					`INSERT INTO raw_players (puuid, league_points, tier, fetched_at, updated_at) VALUES ('p1', NULL, 'MASTER', '2025-01-01', '2025-01-01')`)
				So(err, ShouldNotBeNil)
				So(errors.Is(database.Classify(err), domain.ErrValidation), ShouldBeTrue)
			})

			Convey("Then a CHECK violation is classified as validation", func() {
				_, err := sqlDB.ExecContext(ctx,
					`INSERT INTO data_collection_log (collection_type, status, started_at, completed_at) VALUES ('matches', 'started', '2025-01-01', '2025-01-01')`)
				So(err, ShouldNotBeNil)
				So(errors.Is(database.Classify(err), domain.ErrValidation), ShouldBeTrue)
			})
		})
	}
}

func TestClassify(t *testing.T) {
	Convey("Errors that do not come from SQLite pass through unchanged", t, func() {
		plain := errors.New("boom")
		So(database.Classify(plain), ShouldEqual, plain)
		So(database.Classify(nil), ShouldBeNil)
		So(database.IsTransient(plain), ShouldBeFalse)
	})
}

func TestDSN(t *testing.T) {
	Convey("Connection settings travel in the DSN", t, func() {
		So(database.DSN(config.DriverMattn, "x.db"), ShouldContainSubstring, "_foreign_keys=on")
		So(database.DSN(config.DriverModernc, "x.db"), ShouldContainSubstring, "_pragma=foreign_keys(1)")
	})
}
