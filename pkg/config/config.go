package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pario-ai/dimsync/pkg/models"
)

// Config holds all dimsync configuration.
type Config struct {
	Remote RemoteConfig       `yaml:"remote"`
	Units  string             `yaml:"units"`
	Offset float64            `yaml:"offset"`
	PlaneZ float64            `yaml:"plane_z"`
	Cache  CacheConfig        `yaml:"cache"`
	Audit  models.AuditConfig `yaml:"audit"`
	Log    LogConfig          `yaml:"log"`
}

// RemoteConfig locates the remote add-on service.
type RemoteConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Timeout   time.Duration `yaml:"timeout"`
	Namespace string        `yaml:"namespace"`
}

// CacheConfig selects where identities and marker handles are kept.
// Backend is "memory" (default) or "sqlite".
type CacheConfig struct {
	Backend string `yaml:"backend"`
	DBPath  string `yaml:"db_path"`
}

// LogConfig controls structured logging. Format is "text" or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Host:      "127.0.0.1",
			Port:      19723,
			Timeout:   10 * time.Second,
			Namespace: "DimensionGh",
		},
		Units: string(models.Millimeters),
		Cache: CacheConfig{
			Backend: "memory",
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        ":memory:",
			RetentionDays: 30,
			Include:       []string{"requests", "responses"},
			MaxBodySize:   64 * 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// UnitSystem returns the parsed working unit system.
func (c *Config) UnitSystem() (models.UnitSystem, error) {
	return models.ParseUnitSystem(c.Units)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Remote.Port < 1 || c.Remote.Port > 65535 {
		errs = append(errs, fmt.Errorf("remote.port %d out of range 1-65535", c.Remote.Port))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must be positive, got %v", c.Remote.Timeout))
	}
	if _, err := c.UnitSystem(); err != nil {
		errs = append(errs, fmt.Errorf("units: %w", err))
	}
	switch c.Cache.Backend {
	case "", "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q must be memory or sqlite", c.Cache.Backend))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
