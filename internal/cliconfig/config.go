// Package cliconfig assembles the runtime configuration of the go-persian
// CLI from three layers with increasing precedence: TOML file, GOPERSIAN_*
// environment variables, explicit command-line flags.
package cliconfig

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tartampluch/go-persian/internal/config"
)

// Config holds CLI configuration for go-persian.
type Config struct {
	// Port is the TCP port the HTTP server binds on localhost.
	Port int

	// Kind selects the temporal representation used when none is given
	// explicitly: utc, local, or civil.
	Kind string

	// Feed is the iCalendar source served (annotated) at /feed.ics. Empty
	// disables the feed surface.
	Feed string

	LogLevel    string
	HTTPTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:        config.DefaultPort,
		Kind:        config.DefaultKind,
		LogLevel:    config.DefaultLogLevel,
		HTTPTimeout: config.HTTPTimeout,
	}
}

// Validate checks the configuration for errors and fills zero values with
// defaults so partially-populated layers never leave holes.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = config.DefaultPort
	}
	if c.Kind == "" {
		c.Kind = config.DefaultKind
	}
	if c.LogLevel == "" {
		c.LogLevel = config.DefaultLogLevel
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = config.HTTPTimeout
	}

	if c.Port < config.MinPort || c.Port > config.MaxPort {
		return errors.New(config.ErrPortRange)
	}
	if !slices.Contains(config.SupportedKinds, c.Kind) {
		return fmt.Errorf("%s: %q", config.ErrKindUnsupported, c.Kind)
	}
	if !slices.Contains(config.SupportedLogLevels, c.LogLevel) {
		return fmt.Errorf("%s: %q", config.ErrLogLevelUnknown, c.LogLevel)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New(config.ErrTimeoutInvalid)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
