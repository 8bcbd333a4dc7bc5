package config

import "strings"

// Config is the full finsight configuration tree.
type Config struct {
	App      AppConfig      `toml:"app"`
	Cache    CacheConfig    `toml:"cache"`
	Sources  SourcesConfig  `toml:"sources"`
	Sectors  SectorsConfig  `toml:"sectors"`
	Executor ExecutorConfig `toml:"executor"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// CacheConfig selects the cache backend and the per-capability TTL table.
// A TTL of 0 hours disables caching for that capability entirely.
type CacheConfig struct {
	Backend       string             `toml:"backend"` // "memory" | "sqlite"
	Path          string             `toml:"path"`
	DefaultTTLH   float64            `toml:"default_ttl_hours"`
	TTLHours      map[string]float64 `toml:"ttl_hours"`
	StaleFallback bool               `toml:"stale_fallback"`
	StaleFactor   float64            `toml:"stale_factor"`
}

// RateConfig is the call budget for one source identity. Zero means
// unlimited for that axis.
type RateConfig struct {
	PerMinute int `toml:"per_minute"`
	PerDay    int `toml:"per_day"`
}

type SourcesConfig struct {
	Edgar       EdgarConfig       `toml:"edgar"`
	Polygon     PolygonConfig     `toml:"polygon"`
	Yahoo       YahooConfig       `toml:"yahoo"`
	WebResearch WebResearchConfig `toml:"webresearch"`
}

type EdgarConfig struct {
	BaseURL        string     `toml:"base_url"`
	TickerMapURL   string     `toml:"ticker_map_url"`
	UserAgent      string     `toml:"user_agent"`
	TimeoutSeconds int        `toml:"timeout_seconds"`
	Rate           RateConfig `toml:"rate"`
}

type PolygonConfig struct {
	Enabled       bool       `toml:"enabled"`
	BaseURL       string     `toml:"base_url"`
	APIKey        string     `toml:"api_key"`
	MaxCandidates int        `toml:"max_candidates"`
	Rate          RateConfig `toml:"rate"`
}

type YahooConfig struct {
	Enabled bool       `toml:"enabled"`
	BaseURL string     `toml:"base_url"`
	Rate    RateConfig `toml:"rate"`
}

type WebResearchConfig struct {
	SearchBaseURL string     `toml:"search_base_url"`
	SearchAPIKey  string     `toml:"search_api_key"`
	MaxResults    int        `toml:"max_results"`
	LLMBaseURL    string     `toml:"llm_base_url"`
	LLMAPIKey     string     `toml:"llm_api_key"`
	LLMModel      string     `toml:"llm_model"`
	Rate          RateConfig `toml:"rate"`
}

type SectorsConfig struct {
	Path string `toml:"path"`
}

type ExecutorConfig struct {
	Parallel            bool `toml:"parallel"`
	MaxConcurrent       int  `toml:"max_concurrent"`
	FetchTimeoutSeconds int  `toml:"fetch_timeout_seconds"`
}

// keySet tracks which config paths were explicitly set in the files, so
// defaults never clobber an intentional zero value.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is one defaulting rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
