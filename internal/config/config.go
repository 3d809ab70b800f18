// Package config loads application configuration from defaults, an optional
// YAML file and VAULTPANEL_ environment variables, in increasing priority.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "VAULTPANEL_"

	// ConfigPathEnvVar names an explicit config file. Without it, vaultpanel.yaml
	// in the working directory is used when present.
	ConfigPathEnvVar  = "VAULTPANEL_CONFIG"
	defaultConfigFile = "vaultpanel.yaml"
)

// Config holds the application configuration.
type Config struct {
	DBPath         string        `koanf:"db_path"`
	ListenAddr     string        `koanf:"listen_addr"`
	SyncInterval   time.Duration `koanf:"sync_interval"`
	APIBaseURL     string        `koanf:"api_base_url"`
	RequestDelay   time.Duration `koanf:"request_delay"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	SettingsPath   string        `koanf:"settings_path"`
	LogLevel       string        `koanf:"log_level"`
	LogFormat      string        `koanf:"log_format"`

	// SecretKeyHex is the raw VAULTPANEL_SECRET_KEY value; SecretKey holds the
	// decoded 32 bytes, or nil when unset.
	SecretKeyHex string `koanf:"secret_key"`
	SecretKey    []byte `koanf:"-"`
}

func defaults() Config {
	return Config{
		DBPath:         "vaultpanel.db",
		ListenAddr:     "127.0.0.1:8080",
		SyncInterval:   15 * time.Minute,
		APIBaseURL:     "https://api.guildwars2.com/",
		RequestDelay:   500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		SettingsPath:   "vaultpanel-settings.yaml",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads and validates configuration. Errors name the offending variable.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// VAULTPANEL_SYNC_INTERVAL -> sync_interval
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for _, key := range []string{"sync_interval", "request_delay", "request_timeout"} {
		if err := checkDuration(k, key); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

func envName(key string) string {
	return envPrefix + strings.ToUpper(key)
}

func configFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// checkDuration rejects unparsable duration strings before Unmarshal so the
// error names the variable instead of a decoder path.
func checkDuration(k *koanf.Koanf, key string) error {
	v, ok := k.Get(key).(string)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s has invalid duration %q: %w", envName(key), v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %q", envName(key), v)
	}
	return nil
}

func (c *Config) validate() error {
	if c.SecretKeyHex != "" {
		key, err := hex.DecodeString(c.SecretKeyHex)
		if err != nil {
			return fmt.Errorf("%s is not valid hex: %w", envName("secret_key"), err)
		}
		if len(key) != 32 {
			return fmt.Errorf("%s must be 64 hex characters (32 bytes), got %d bytes", envName("secret_key"), len(key))
		}
		c.SecretKey = key
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s must be text or json, got %q", envName("log_format"), c.LogFormat)
	}

	if c.DBPath == "" {
		return fmt.Errorf("%s must not be empty", envName("db_path"))
	}

	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%s has invalid level %q: %w", envName("log_level"), c.LogLevel, err)
	}
	return level, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
