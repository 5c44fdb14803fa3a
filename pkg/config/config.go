// Package config provides unified configuration for llmprobe.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (provider credentials and LLMPROBE_ vars)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for llmprobe.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
	Request   RequestConfig   `yaml:"request"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ProvidersConfig holds per-provider endpoint and credential settings.
type ProvidersConfig struct {
	OpenAI ProviderConfig `yaml:"openai"`
	Grok   ProviderConfig `yaml:"grok"`
	Local  ProviderConfig `yaml:"local"`
}

// ProviderConfig describes one chat-completion backend.
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url"`     // empty: provider default
	APIKey     string `yaml:"api_key"`      // optional for local
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	Model      string `yaml:"model"`        // empty: provider default
}

// HistoryConfig holds exchange history storage settings.
type HistoryConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres", or "redis", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"` // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr         string        `yaml:"addr"` // default: "localhost:6379"
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"` // _file variant for password
	DB           int           `yaml:"db"`
	TTL          time.Duration `yaml:"ttl"` // 0: no expiry
}

// RequestConfig holds defaults applied to outgoing chat requests.
type RequestConfig struct {
	Model       string        `yaml:"model"`       // empty: provider default
	Temperature *float64      `yaml:"temperature"` // nil: backend default
	MaxTokens   int           `yaml:"max_tokens"`  // 0: backend default
	Timeout     time.Duration `yaml:"timeout"`     // default: 120s
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		History: HistoryConfig{
			Type:    "memory",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Request: RequestConfig{
			Timeout: 120 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
