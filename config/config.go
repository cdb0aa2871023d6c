// Package config loads runtime settings: defaults, then an optional YAML
// file, then .env and environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"preset-panels/builder"
)

// Config is the complete process configuration.
type Config struct {
	Name   string             `yaml:"name"`
	Device DeviceConfig       `yaml:"device"`
	Macro  MacroConfig        `yaml:"macro"`
	Panels builder.Appearance `yaml:"panels"`
	HTTP   HTTPConfig         `yaml:"http"`
	Log    LogConfig          `yaml:"log"`
}

// DeviceConfig selects and parameterises the codec transport.
type DeviceConfig struct {
	Transport string   `yaml:"transport"` // "websocket" or "pty"
	Host      string   `yaml:"host"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Insecure  bool     `yaml:"insecure"`
	Command   []string `yaml:"command"` // pty bridge, e.g. ["ssh", "admin@codec"]
}

type MacroConfig struct {
	CommandTimeoutSec int `yaml:"commandTimeoutSec"`
	PromptTimeoutSec  int `yaml:"promptTimeoutSec"` // 0: a shown prompt never expires
	EventQueue        int `yaml:"eventQueue"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

func (m MacroConfig) CommandTimeout() time.Duration {
	return time.Duration(m.CommandTimeoutSec) * time.Second
}

func (m MacroConfig) PromptTimeout() time.Duration {
	return time.Duration(m.PromptTimeoutSec) * time.Second
}

// Load builds the configuration. A missing .env is fine; a named config
// file that cannot be read is not.
func Load() (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN could not load .env: %v", err)
	}

	if path := os.Getenv("PRESET_PANELS_CONFIG"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Name: "preset_buttons",
		Device: DeviceConfig{
			Transport: "websocket",
			Username:  "admin",
		},
		Macro: MacroConfig{
			CommandTimeoutSec: 10,
			PromptTimeoutSec:  120,
			EventQueue:        64,
		},
		Panels: builder.DefaultAppearance(),
		HTTP:   HTTPConfig{Addr: ":8080"},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Name = getEnv("PRESET_PANELS_NAME", cfg.Name)
	cfg.Device.Transport = getEnv("CODEC_TRANSPORT", cfg.Device.Transport)
	cfg.Device.Host = getEnv("CODEC_HOST", cfg.Device.Host)
	cfg.Device.Username = getEnv("CODEC_USERNAME", cfg.Device.Username)
	cfg.Device.Password = getEnv("CODEC_PASSWORD", cfg.Device.Password)
	if v := os.Getenv("CODEC_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Device.Insecure = b
		}
	}
	if v := os.Getenv("CODEC_COMMAND"); v != "" {
		cfg.Device.Command = strings.Fields(v)
	}
	if v := os.Getenv("COMMAND_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Macro.CommandTimeoutSec = n
		}
	}
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
}

// Validate rejects configurations the process cannot start with.
func Validate(cfg *Config) error {
	switch cfg.Device.Transport {
	case "websocket":
		if cfg.Device.Host == "" {
			return fmt.Errorf("device.host is required for the websocket transport")
		}
	case "pty":
		if len(cfg.Device.Command) == 0 {
			return fmt.Errorf("device.command is required for the pty transport")
		}
	default:
		return fmt.Errorf("invalid transport %q, must be one of: websocket, pty", cfg.Device.Transport)
	}

	if cfg.Macro.CommandTimeoutSec <= 0 || cfg.Macro.CommandTimeoutSec > 120 {
		return fmt.Errorf("command timeout %d seconds is outside reasonable range [1, 120]", cfg.Macro.CommandTimeoutSec)
	}
	if cfg.Macro.PromptTimeoutSec < 0 {
		return fmt.Errorf("prompt timeout must not be negative")
	}
	if cfg.Macro.EventQueue <= 0 {
		return fmt.Errorf("event queue size must be positive")
	}
	if cfg.Panels.Origin == "" || cfg.Panels.Location == "" {
		return fmt.Errorf("panels.origin and panels.location are required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
