// Package config loads the trainer daemon configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete trainer configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Keyer   KeyerConfig   `yaml:"keyer"`
	Decoder DecoderConfig `yaml:"decoder"`
	Drill   DrillConfig   `yaml:"drill"`
	Stats   StatsConfig   `yaml:"stats"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains the WebSocket server settings.
type ServerConfig struct {
	Name           string `yaml:"name"`
	BindAddress    string `yaml:"bind_address"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
}

// KeyerConfig contains the session keyer defaults; clients adjust them live.
type KeyerConfig struct {
	Mode           string `yaml:"mode"` // straight, iambic-a, iambic-b, ultimatic
	WPM            int    `yaml:"wpm"`
	ToneHz         int    `yaml:"tone_hz"`
	TickIntervalUs int    `yaml:"tick_interval_us"`
}

// DecoderConfig contains decoder tuning.
type DecoderConfig struct {
	NoiseThresholdMs float64 `yaml:"noise_threshold_ms"`
	InitialWPM       int     `yaml:"initial_wpm"`
	HistorySize      int     `yaml:"history_size"`
}

// DrillConfig contains drill generation defaults.
type DrillConfig struct {
	GroupSize    int    `yaml:"group_size"`
	GroupCount   int    `yaml:"group_count"`
	CharacterSet string `yaml:"character_set"`
	SpacingWPM   int    `yaml:"spacing_wpm"`
}

// StatsConfig contains the session summary database settings.
type StatsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	MaxSessions int    `yaml:"max_sessions"`
}

// ArchiveConfig contains the transcript archive settings.
type ArchiveConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	Console       bool   `yaml:"console"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:           "cwtrainer",
			BindAddress:    "127.0.0.1",
			Port:           8373,
			MaxConnections: 64,
		},
		Keyer: KeyerConfig{
			Mode:   "iambic-b",
			WPM:    20,
			ToneHz: 600,
		},
		Decoder: DecoderConfig{
			NoiseThresholdMs: 1,
			InitialWPM:       20,
			HistorySize:      30,
		},
		Drill: DrillConfig{
			GroupSize:    5,
			GroupCount:   10,
			CharacterSet: "KMRSUAPTLOWI", // first Koch lessons
			SpacingWPM:   0,
		},
		Stats: StatsConfig{
			Enabled:     true,
			Path:        "data/sessions.db",
			MaxSessions: 10000,
		},
		Archive: ArchiveConfig{
			Enabled:       true,
			Dir:           "data/archive",
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Dir:           "logs",
			RetentionDays: 7,
			Console:       true,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Keyer.WPM <= 0 {
		return fmt.Errorf("keyer.wpm must be positive, got %d", c.Keyer.WPM)
	}
	if c.Decoder.NoiseThresholdMs < 0 {
		return fmt.Errorf("decoder.noise_threshold_ms must not be negative")
	}
	if c.Stats.Enabled && c.Stats.Path == "" {
		return fmt.Errorf("stats.path is required when stats are enabled")
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required when the archive is enabled")
	}
	return nil
}

// Print displays the effective configuration.
func (c *Config) Print() {
	fmt.Printf("Server: %s on %s:%d\n", c.Server.Name, c.Server.BindAddress, c.Server.Port)
	fmt.Printf("Keyer: %s at %d wpm, sidetone %d Hz\n", c.Keyer.Mode, c.Keyer.WPM, c.Keyer.ToneHz)
	if c.Stats.Enabled {
		fmt.Printf("Stats: %s (max %d sessions)\n", c.Stats.Path, c.Stats.MaxSessions)
	}
	if c.Archive.Enabled {
		fmt.Printf("Archive: %s (%d day retention)\n", c.Archive.Dir, c.Archive.RetentionDays)
	}
}
