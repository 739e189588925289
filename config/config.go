package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration: where the journal lives, how
// to log, and how to serve. The trader's rule settings are a separate
// document, loaded by package settings from Journal.SettingsPath.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type JournalConfig struct {
	DBPath       string `mapstructure:"db_path"`
	SettingsPath string `mapstructure:"settings_path"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig selects the memo backend: "memory" or "redis".
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// EnvPrefix namespaces environment overrides, e.g. TJ_JOURNAL_DB_PATH.
const EnvPrefix = "TJ"

// Load reads path (YAML) layered over defaults, with TJ_* environment
// variables taking precedence. With envOnly the file is not read.
func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", true)
	v.SetDefault("log.disable_stacktrace", true)
	v.SetDefault("journal.db_path", "journal.db")
	v.SetDefault("journal.settings_path", "settings.yaml")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_url", "localhost:6379")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 128)

	if !envOnly {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("log.encoding must be 'json' or 'console'")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url required for redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis'")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	return nil
}
