package edgar

import (
	"strings"
	"time"
)

type Config struct {
	BaseURL      string
	TickerMapURL string
	// UserAgent is the declared identity SEC requires on every request,
	// e.g. "Jane Doe jane@example.com".
	UserAgent   string
	HTTPTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimSpace(out.BaseURL)
	if out.BaseURL == "" {
		out.BaseURL = "https://data.sec.gov"
	}
	out.TickerMapURL = strings.TrimSpace(out.TickerMapURL)
	if out.TickerMapURL == "" {
		out.TickerMapURL = "https://www.sec.gov/files/company_tickers.json"
	}
	out.UserAgent = strings.TrimSpace(out.UserAgent)
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}
