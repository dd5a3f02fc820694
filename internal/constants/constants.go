package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 16
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMS   = 5000
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Riot limits for a development/personal key.
const (
	RiotShortLimit  = 20
	RiotShortWindow = 1 * time.Second
	RiotLongLimit   = 100
	RiotLongWindow  = 120 * time.Second

	// match-ids endpoint caps count at 20
	MaxMatchesPerPlayer = 20
)

const (
	RetryBaseDelay  = 500 * time.Millisecond
	RetryMaxRetries = 3
	RetryMaxDelay   = 2 * time.Minute
)

const (
	PlayerPageSize     = 200
	DefaultRunsLimit   = 20
	MaxRunsLimit       = 500
	DefaultListLimit   = 50
	MaxListLimit       = 1000
	StaleRunThreshold  = 6 * time.Hour
	ProgressLogEvery   = 50
	DefaultConcurrency = 4
)
