// Package config loads the ambient settings every votecore entrypoint
// needs: log level/format, the store's database URL, the listen address,
// and the phase-duration bounds. Environment variables take precedence
// over defaults; unknown variables are ignored.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/luckeedao/votecore/pkg/verr"
)

// Config holds every setting the core reads from its environment.
type Config struct {
	LogLevel  string
	LogFormat string

	// DatabaseURL selects the store backend: empty or "memory://" uses
	// the in-process store; any "postgres://" URL is handed to the
	// Postgres backend.
	DatabaseURL string

	ListenAddr string

	MinPhaseDuration time.Duration
	MaxPhaseDuration time.Duration
}

// Load reads configuration from the process environment, falling back to
// documented defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_URL", "memory://")
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("MIN_PHASE_DURATION", time.Hour)
	v.SetDefault("MAX_PHASE_DURATION", 168*time.Hour)

	cfg := &Config{
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		MinPhaseDuration: v.GetDuration("MIN_PHASE_DURATION"),
		MaxPhaseDuration: v.GetDuration("MAX_PHASE_DURATION"),
	}

	if cfg.MinPhaseDuration <= 0 || cfg.MaxPhaseDuration < cfg.MinPhaseDuration {
		return nil, verr.New(verr.InvalidConfig, "MIN_PHASE_DURATION/MAX_PHASE_DURATION must form a valid positive range")
	}
	return cfg, nil
}
