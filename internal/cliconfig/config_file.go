package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/tartampluch/go-persian/internal/config"
)

// FileConfig mirrors Config but uses a string for the timeout to make TOML friendly.
type FileConfig struct {
	Port        int    `toml:"port"`
	Kind        string `toml:"kind"`
	Feed        string `toml:"feed"`
	LogLevel    string `toml:"log_level"`
	HTTPTimeout string `toml:"http_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.go-persian/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, config.ConfigDirName, config.ConfigFileName)
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt(config.FlagPort, fc.Port, &cfg.Port)
	s.setString(config.FlagKind, fc.Kind, &cfg.Kind)
	s.setString(config.FlagFeed, fc.Feed, &cfg.Feed)
	s.setString(config.FlagLogLevel, fc.LogLevel, &cfg.LogLevel)

	return s.setDuration(config.FlagTimeout, fc.HTTPTimeout, &cfg.HTTPTimeout)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
