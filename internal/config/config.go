// Package config provides centralized configuration loaded from environment
// variables. Shared by every cmd/propcore subcommand.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	Environment string // development, staging, production
	Debug       bool

	// Provider credentials and endpoints
	HoopStatsBaseURL  string
	RosterFeedAPIKey  string
	RosterFeedBaseURL string
	CourtBasicBaseURL string

	// Per-provider request budgets (requests per minute)
	HoopStatsRPM  int
	RosterFeedRPM int

	// Retry behavior for provider calls
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// Cache
	CacheEnabled bool
	RedisAddr    string // empty selects the in-memory store
	RedisDB      int

	// Odds selection
	BookmakerPriority []string
	LowPointsLine     float64

	// Ledger
	LedgerPath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	return &Config{
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		HoopStatsBaseURL:  envOr("HOOPSTATS_BASE_URL", ""),
		RosterFeedAPIKey:  envOr("ROSTERFEED_API_KEY", ""),
		RosterFeedBaseURL: envOr("ROSTERFEED_BASE_URL", ""),
		CourtBasicBaseURL: envOr("COURTBASIC_BASE_URL", ""),

		HoopStatsRPM:  envInt("HOOPSTATS_RPM", 30),
		RosterFeedRPM: envInt("ROSTERFEED_RPM", 60),

		RetryMaxAttempts: envInt("PROVIDER_RETRY_MAX", 2),
		RetryBaseDelay:   time.Duration(envInt("PROVIDER_RETRY_BASE_MS", 500)) * time.Millisecond,

		CacheEnabled: envBool("CACHE_ENABLED", true),
		RedisAddr:    envOr("REDIS_ADDR", ""),
		RedisDB:      envInt("REDIS_DB", 0),

		BookmakerPriority: envList("BOOKMAKER_PRIORITY", nil),
		LowPointsLine:     float64(envInt("LOW_POINTS_LINE", 8)),

		LedgerPath: envOr("LEDGER_PATH", "data/ledger.jsonl"),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
