package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Sources.validate(); err != nil {
		return err
	}
	return c.Executor.validate()
}

func (c *CacheConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("cache.path cannot be empty for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"sqlite\", got %q", c.Backend)
	}
	if c.StaleFactor <= 0 || c.StaleFactor > 1 {
		return fmt.Errorf("cache.stale_factor must be in (0, 1]")
	}
	for capability, hours := range c.TTLHours {
		if hours < 0 {
			return fmt.Errorf("cache.ttl_hours.%s cannot be negative", capability)
		}
	}
	return nil
}

func (s *SourcesConfig) validate() error {
	if strings.TrimSpace(s.Edgar.UserAgent) == "" {
		return fmt.Errorf("sources.edgar.user_agent is required (SEC fair-access policy)")
	}
	if s.Polygon.Enabled && strings.TrimSpace(s.Polygon.APIKey) == "" {
		return fmt.Errorf("sources.polygon.api_key is required when polygon is enabled")
	}
	if !s.Polygon.Enabled && !s.Yahoo.Enabled {
		return fmt.Errorf("at least one market data source must be enabled")
	}
	if strings.TrimSpace(s.WebResearch.SearchAPIKey) == "" {
		return fmt.Errorf("sources.webresearch.search_api_key is required")
	}
	if strings.TrimSpace(s.WebResearch.LLMAPIKey) == "" {
		return fmt.Errorf("sources.webresearch.llm_api_key is required")
	}
	return nil
}

func (e *ExecutorConfig) validate() error {
	if e.MaxConcurrent < 1 {
		return fmt.Errorf("executor.max_concurrent must be >= 1")
	}
	return nil
}

// RateBudgets flattens the per-source rate sections into the limiter's
// identity-keyed table.
func (s *SourcesConfig) RateBudgets() map[string]RateConfig {
	return map[string]RateConfig{
		"edgar":       s.Edgar.Rate,
		"polygon":     s.Polygon.Rate,
		"yahoo":       s.Yahoo.Rate,
		"webresearch": s.WebResearch.Rate,
	}
}
