package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, LLMPROBE_CONFIG env, ./config.yaml, /etc/llmprobe/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. LLMPROBE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/llmprobe/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check LLMPROBE_CONFIG env var.
	if envPath := os.Getenv("LLMPROBE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/llmprobe/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Provider
// credentials use the conventional variable names so a YAML file is never
// required just to hand over a key.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		cfg.Providers.OpenAI.BaseURL = v
	}
	if v := os.Getenv("GROK_API_KEY"); v != "" {
		cfg.Providers.Grok.APIKey = v
	}
	if v := os.Getenv("GROK_API_BASE"); v != "" {
		cfg.Providers.Grok.BaseURL = v
	}
	if v := os.Getenv("LLMPROBE_LOCAL_URL"); v != "" {
		cfg.Providers.Local.BaseURL = v
	}
	if v := os.Getenv("LLMPROBE_MODEL"); v != "" {
		cfg.Request.Model = v
	}
	if v := os.Getenv("LLMPROBE_HISTORY"); v != "" {
		cfg.History.Type = v
	}
	if v := os.Getenv("LLMPROBE_REDIS_ADDR"); v != "" {
		cfg.History.Redis.Addr = v
	}
	if v := os.Getenv("LLMPROBE_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	providers := []struct {
		name string
		cfg  *ProviderConfig
	}{
		{"openai", &cfg.Providers.OpenAI},
		{"grok", &cfg.Providers.Grok},
		{"local", &cfg.Providers.Local},
	}
	for _, p := range providers {
		if p.cfg.APIKeyFile != "" && p.cfg.APIKey == "" {
			val, err := readSecretFile(p.cfg.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", p.name, err)
			}
			p.cfg.APIKey = val
		}
	}

	// history.postgres.dsn_file -> history.postgres.dsn
	if cfg.History.Postgres.DSNFile != "" && cfg.History.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.History.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("history.postgres.dsn_file: %w", err)
		}
		cfg.History.Postgres.DSN = val
	}

	// history.redis.password_file -> history.redis.password
	if cfg.History.Redis.PasswordFile != "" && cfg.History.Redis.Password == "" {
		val, err := readSecretFile(cfg.History.Redis.PasswordFile)
		if err != nil {
			return fmt.Errorf("history.redis.password_file: %w", err)
		}
		cfg.History.Redis.Password = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
