// Package config provides Viper-based hierarchical configuration for
// the statement hub: defaults, optional YAML config file and STMT_*
// environment variables, in ascending precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Address         string `mapstructure:"address" yaml:"address"`
		ReadTimeoutSec  int    `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
		WriteTimeoutSec int    `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	} `mapstructure:"server" yaml:"server"`

	Upload struct {
		MaxFileBytes int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
		Extensions   []string `mapstructure:"extensions" yaml:"extensions"`
	} `mapstructure:"upload" yaml:"upload"`

	Pipeline struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
		PageCap int `mapstructure:"page_cap" yaml:"page_cap"`
		RowCap  int `mapstructure:"row_cap" yaml:"row_cap"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	Session struct {
		TTLMinutes           int `mapstructure:"ttl_minutes" yaml:"ttl_minutes"`
		SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" yaml:"sweep_interval_seconds"`
	} `mapstructure:"session" yaml:"session"`

	AI struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Model   string `mapstructure:"model" yaml:"model"`
		APIKey  string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`
}

// SessionTTL returns the session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// SessionSweepInterval returns the sweeper cadence as a duration.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSeconds) * time.Second
}

// ExtensionAllowed reports whether an upload extension (with leading
// dot, any case) passes the allowlist.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.Upload.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Load initializes Viper configuration with hierarchical loading.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.statement-hub")
	v.AddConfigPath(".statement-hub")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STMT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The API key is always taken from the conventional env name.
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 60)

	v.SetDefault("upload.max_file_bytes", int64(10*1024*1024))
	v.SetDefault("upload.extensions", []string{".csv", ".pdf"})

	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.page_cap", 10)
	v.SetDefault("pipeline.row_cap", 500)

	v.SetDefault("session.ttl_minutes", 30)
	v.SetDefault("session.sweep_interval_seconds", 60)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-1.5-flash")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if config.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if config.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("upload.max_file_bytes must be positive")
	}
	if len(config.Upload.Extensions) == 0 {
		return fmt.Errorf("upload.extensions must not be empty")
	}
	if config.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if config.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	if config.Session.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("session.sweep_interval_seconds must be positive")
	}
	if config.AI.Enabled && config.AI.APIKey == "" {
		return fmt.Errorf("ai.enabled requires GEMINI_API_KEY to be set")
	}
	return nil
}
