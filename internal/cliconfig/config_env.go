package cliconfig

import (
	"os"

	"github.com/tartampluch/go-persian/internal/config"
)

// ApplyEnvConfig applies configuration from environment variables (GOPERSIAN_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString(config.FlagKind, os.Getenv(config.EnvKind), &cfg.Kind)
	s.setString(config.FlagFeed, os.Getenv(config.EnvFeed), &cfg.Feed)
	s.setString(config.FlagLogLevel, os.Getenv(config.EnvLogLevel), &cfg.LogLevel)

	if err := s.setIntFromString(config.FlagPort, os.Getenv(config.EnvPort), &cfg.Port); err != nil {
		return err
	}

	return s.setDuration(config.FlagTimeout, os.Getenv(config.EnvHTTPTimeout), &cfg.HTTPTimeout)
}
