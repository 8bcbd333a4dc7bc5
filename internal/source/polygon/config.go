package polygon

import (
	"strings"
	"time"
)

type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	// MaxCandidates bounds how many same-SIC tickers one competitor search
	// pulls before filtering.
	MaxCandidates int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimSpace(out.BaseURL)
	if out.BaseURL == "" {
		out.BaseURL = "https://api.polygon.io"
	}
	out.APIKey = strings.TrimSpace(out.APIKey)
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	if out.MaxCandidates <= 0 {
		out.MaxCandidates = 50
	}
	return out
}
