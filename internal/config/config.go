// Package config holds slurm-watch configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the full slurm-watch configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Poll      PollConfig      `yaml:"poll" mapstructure:"poll"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	UI        UIConfig        `yaml:"ui" mapstructure:"ui"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// File receives logs while the dashboard owns the terminal.
	File string `yaml:"file" mapstructure:"file"`
}

// PollConfig controls the scheduler and log polling loops.
type PollConfig struct {
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval"`
	TailInterval   time.Duration `yaml:"tail_interval" mapstructure:"tail_interval"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// DiscoveryConfig controls watch --all job discovery.
type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// UIConfig controls the dashboard rendering.
type UIConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
	MaxLogLines     int           `yaml:"max_log_lines" mapstructure:"max_log_lines"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "~/.config/slurm-watch/slurm-watch.log",
		},
		Poll: PollConfig{
			StatusInterval: 3 * time.Second,
			TailInterval:   1 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled:  false,
			Interval: 15 * time.Second,
		},
		UI: UIConfig{
			RefreshInterval: 250 * time.Millisecond,
			MaxLogLines:     5000,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Poll.StatusInterval <= 0 {
		return fmt.Errorf("poll.status_interval must be positive, got %s", c.Poll.StatusInterval)
	}
	if c.Poll.TailInterval <= 0 {
		return fmt.Errorf("poll.tail_interval must be positive, got %s", c.Poll.TailInterval)
	}
	if c.Poll.CommandTimeout <= 0 {
		return fmt.Errorf("poll.command_timeout must be positive, got %s", c.Poll.CommandTimeout)
	}
	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("discovery.interval must be positive, got %s", c.Discovery.Interval)
	}
	if c.UI.RefreshInterval < 100*time.Millisecond || c.UI.RefreshInterval > 250*time.Millisecond {
		return fmt.Errorf("ui.refresh_interval must be between 100ms and 250ms, got %s", c.UI.RefreshInterval)
	}
	if c.UI.MaxLogLines <= 0 {
		return fmt.Errorf("ui.max_log_lines must be positive, got %d", c.UI.MaxLogLines)
	}
	return nil
}
