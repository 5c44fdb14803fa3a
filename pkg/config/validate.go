package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// history.type must be a known value.
	switch c.History.Type {
	case "memory", "postgres", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("history.type must be \"memory\", \"postgres\", or \"redis\", got %q", c.History.Type))
	}

	// If history.type is "postgres", DSN or DSNFile must be set.
	if c.History.Type == "postgres" {
		if c.History.Postgres.DSN == "" && c.History.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("history.postgres.dsn or history.postgres.dsn_file is required when history.type is \"postgres\""))
		}
	}

	// If history.type is "redis", an address must be set.
	if c.History.Type == "redis" && c.History.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("history.redis.addr is required when history.type is \"redis\""))
	}

	if c.History.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("history.max_size must be >= 0, got %d", c.History.MaxSize))
	}

	if c.Request.Temperature != nil {
		if t := *c.Request.Temperature; t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("request.temperature must be between 0 and 2, got %v", t))
		}
	}
	if c.Request.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("request.max_tokens must be >= 0, got %d", c.Request.MaxTokens))
	}
	if c.Request.Timeout < 0 {
		errs = append(errs, fmt.Errorf("request.timeout must be >= 0, got %v", c.Request.Timeout))
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		errs = append(errs, fmt.Errorf("metrics.path is required when metrics.enabled is true"))
	}

	return errors.Join(errs...)
}
