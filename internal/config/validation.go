// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for fatal errors. A failing validation
// aborts the run before any fetch starts.
func (c *Config) Validate() error {
	if len(c.Catalogs) == 0 {
		return fmt.Errorf("at least one catalog must be configured")
	}

	for i, cat := range c.Catalogs {
		if err := cat.validate(); err != nil {
			return fmt.Errorf("catalog %d: %w", i, err)
		}
	}

	if c.Fetch.Limit <= 0 {
		return fmt.Errorf("fetch.limit must be positive, got %d", c.Fetch.Limit)
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be positive, got %d", c.Fetch.Workers)
	}
	if c.Fetch.AutosaveEvery <= 0 {
		return fmt.Errorf("fetch.autosave_every must be positive, got %d", c.Fetch.AutosaveEvery)
	}
	if c.Fetch.RateLimit <= 0 {
		return fmt.Errorf("fetch.rate_limit must be positive, got %f", c.Fetch.RateLimit)
	}

	if c.Anomaly.MinGroupSize < 2 {
		return fmt.Errorf("anomaly.min_group_size must be at least 2, got %d", c.Anomaly.MinGroupSize)
	}

	if c.Output.File == "" {
		return fmt.Errorf("output.file is required")
	}
	if c.Output.File == c.Output.CheckpointFile {
		return fmt.Errorf("output.file and output.checkpoint_file must differ")
	}

	if c.Output.MongoDB != nil {
		m := c.Output.MongoDB
		if m.URI == "" {
			return fmt.Errorf("output.mongodb.uri is required when mongodb is configured")
		}
		if m.Database == "" || m.Collection == "" {
			return fmt.Errorf("output.mongodb database and collection are required")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %s", c.LogLevel)
	}

	return nil
}

func (cc *CatalogConfig) validate() error {
	if cc.URL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(cc.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", u.Scheme)
	}

	switch cc.Category {
	case "movie", "tv":
	default:
		return fmt.Errorf("category must be \"movie\" or \"tv\", got %q", cc.Category)
	}

	return nil
}
