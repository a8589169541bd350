// Package config provides configuration management for spantap.
// It uses Viper for loading configuration from files, environment
// variables, and command-line flags with sensible defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for spantap.
type Config struct {
	Parse   ParseConfig   `mapstructure:"parse"`
	Capture CaptureConfig `mapstructure:"capture"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ParseConfig holds settings for transcript parsing.
type ParseConfig struct {
	// Direction parsed when none is given: requests, responses
	DefaultDirection string `mapstructure:"default_direction"`
	// Maximum messages to parse per transcript (0 = unlimited)
	MaxMessages int `mapstructure:"max_messages"`
}

// CaptureConfig holds settings for pcap transcript extraction.
type CaptureConfig struct {
	// TCP ports treated as the server side when orienting a
	// conversation's directions
	ServerPorts []int `mapstructure:"server_ports"`
}

// ExportConfig holds settings for parse tree export.
type ExportConfig struct {
	// Default export format: json, yaml
	DefaultFormat string `mapstructure:"default_format"`
	// Pretty print JSON output
	PrettyJSON bool `mapstructure:"pretty_json"`
}

// LoggingConfig holds settings for logging.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Log file (empty = stderr only)
	File string `mapstructure:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Parse: ParseConfig{
			DefaultDirection: "requests",
			MaxMessages:      0,
		},
		Capture: CaptureConfig{
			ServerPorts: []int{80, 8080},
		},
		Export: ExportConfig{
			DefaultFormat: "json",
			PrettyJSON:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// global holds the global configuration instance.
var global *Config

// Global returns the global configuration instance.
func Global() *Config {
	if global == nil {
		global = DefaultConfig()
	}
	return global
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	global = cfg
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".config", "spantap"))
	v.AddConfigPath("/etc/spantap")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SPANTAP")
	v.AutomaticEnv()

	// A missing config file is fine; defaults apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Logging.File != "" {
		cfg.Logging.File = expandPath(cfg.Logging.File)
	}

	SetGlobal(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Logging.File != "" {
		cfg.Logging.File = expandPath(cfg.Logging.File)
	}

	SetGlobal(cfg)
	return cfg, nil
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("parse.default_direction", "requests")
	v.SetDefault("parse.max_messages", 0)

	v.SetDefault("capture.server_ports", []int{80, 8080})

	v.SetDefault("export.default_format", "json")
	v.SetDefault("export.pretty_json", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "spantap", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
