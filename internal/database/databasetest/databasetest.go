// Package databasetest opens throwaway migrated databases for tests.
package databasetest

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"tft-ladder/internal/config"
	"tft-ladder/internal/database"
	"time"

	"github.com/rs/zerolog"
)

// Open returns a migrated SQLite database in a temporary directory.
func Open(t testing.TB) *sql.DB {
	return OpenWithDriver(t, config.DriverMattn)
}

func OpenWithDriver(t testing.TB, driver string) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		DBDriver: driver,
		DBPath:   filepath.Join(t.TempDir(), "tft_test.db"),
	}
	sqlDB, err := database.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

// Clock hands out strictly increasing timestamps.
type Clock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{next: start.UTC(), step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Advance moves the clock forward without handing out a timestamp.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.next.Add(d)
}
