package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds process-level settings resolved from the environment. The
// persisted settings tree (Settings) lives in the data directory it names.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DataDir string `envconfig:"LENS_DATA_DIR" default:""`

	HTTPHost        string `envconfig:"LENS_HTTP_HOST" default:"127.0.0.1"`
	HTTPPort        int    `envconfig:"LENS_HTTP_PORT" default:"8765"`
	AccessTokenHash string `envconfig:"LENS_ACCESS_TOKEN_HASH" default:""`

	TesseractDataDir string `envconfig:"LENS_TESSDATA_DIR" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("LENS_DATA_DIR could not be resolved")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("LENS_HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// SettingsPath is the location of the persisted settings tree.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

// HistoryPath is the location of the translation history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.json")
}

func defaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "lens")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lens"
	}
	return filepath.Join(home, ".lens")
}
