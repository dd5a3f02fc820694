package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"tft-ladder/internal/constants"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

type Config struct {
	RiotAPIKey      string `koanf:"riot_api_key"`
	RiotRegion      string `koanf:"riot_region"`
	RiotPlatform    string `koanf:"riot_platform"`
	RegionalBaseURL string `koanf:"regional_base_url"`
	PlatformBaseURL string `koanf:"platform_base_url"`

	DBDriver string `koanf:"db_driver"`
	DBPath   string `koanf:"db_path"`

	ServerPort string `koanf:"server_port"`
	LogLevel   string `koanf:"log_level"`

	MatchesPerPlayer int           `koanf:"matches_per_player"`
	PlayerLimit      int           `koanf:"player_limit"`
	FetchConcurrency int           `koanf:"fetch_concurrency"`
	StaleRunAfter    time.Duration `koanf:"stale_run_after"`
}

// Defaults reads the unprefixed variables the collector has always used
// (RIOT_API_KEY, DB_PATH, ...) so an existing .env keeps working.
func Defaults() *Config {
	return &Config{
		RiotAPIKey:       getEnv("RIOT_API_KEY", ""),
		RiotRegion:       getEnv("RIOT_REGION", "na1"),
		RiotPlatform:     getEnv("RIOT_PLATFORM", "americas"),
		DBDriver:         getEnv("DB_DRIVER", DriverMattn),
		DBPath:           getEnv("DB_PATH", "tft_data.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MatchesPerPlayer: getEnvInt("MATCHES_PER_PLAYER", constants.MaxMatchesPerPlayer),
		PlayerLimit:      getEnvInt("PLAYER_LIMIT", 0),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", constants.DefaultConcurrency),
		StaleRunAfter:    constants.StaleRunThreshold,
	}
}

// Load layers .env, defaults, an optional YAML file named by TFT_CONFIG and
// TFT_-prefixed environment variables, in increasing precedence.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := Defaults()
	k := koanf.New(".")

	if path := os.Getenv("TFT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("TFT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "tft_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.fillBaseURLs()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_driver", cfg.DBDriver).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("region", cfg.RiotRegion).
		Str("platform", cfg.RiotPlatform).
		Int("matches_per_player", cfg.MatchesPerPlayer).
		Int("fetch_concurrency", cfg.FetchConcurrency).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMattn, DriverModernc:
	default:
		return fmt.Errorf("unsupported db_driver %q (want %q or %q)", c.DBDriver, DriverMattn, DriverModernc)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MatchesPerPlayer < 1 || c.MatchesPerPlayer > constants.MaxMatchesPerPlayer {
		return fmt.Errorf("matches_per_player must be between 1 and %d, got %d", constants.MaxMatchesPerPlayer, c.MatchesPerPlayer)
	}
	if c.PlayerLimit < 0 {
		return fmt.Errorf("player_limit must not be negative")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be positive")
	}
	if c.StaleRunAfter <= 0 {
		return fmt.Errorf("stale_run_after must be positive")
	}
	return nil
}

func (c *Config) fillBaseURLs() {
	if c.RegionalBaseURL == "" {
		c.RegionalBaseURL = fmt.Sprintf("https://%s.api.riotgames.com", c.RiotRegion)
	}
	if c.PlatformBaseURL == "" {
		c.PlatformBaseURL = fmt.Sprintf("https://%s.api.riotgames.com", c.RiotPlatform)
	}
	c.RegionalBaseURL = strings.TrimRight(c.RegionalBaseURL, "/")
	c.PlatformBaseURL = strings.TrimRight(c.PlatformBaseURL, "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

var Module = fx.Provide(Load)
