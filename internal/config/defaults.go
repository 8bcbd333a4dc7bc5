package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = "/data/logs/finsight.log"

	defaultCacheBackend    = "sqlite"
	defaultCachePath       = "/data/db/finsight-cache.db"
	defaultCacheTTLHours   = 24
	defaultCacheStaleShare = 0.5

	defaultEdgarBaseURL      = "https://data.sec.gov"
	defaultEdgarTickerMapURL = "https://www.sec.gov/files/company_tickers.json"
	defaultEdgarTimeout      = 20
	defaultEdgarPerMinute    = 10

	defaultPolygonBaseURL    = "https://api.polygon.io"
	defaultPolygonCandidates = 50
	defaultPolygonPerMinute  = 5

	defaultYahooBaseURL   = "https://query1.finance.yahoo.com"
	defaultYahooPerMinute = 60

	defaultResearchSearchURL  = "https://api.tavily.com"
	defaultResearchMaxResults = 5
	defaultResearchLLMURL     = "https://api.openai.com/v1"
	defaultResearchLLMModel   = "gpt-4o-mini"
	defaultResearchPerMinute  = 10
	defaultResearchPerDay     = 200

	defaultSectorsPath = "configs/sectors.yaml"

	defaultExecutorMaxConcurrent = 4
	defaultExecutorFetchTimeout  = 15
)

// defaultTTLHours maps volatility classes to cache lifetimes. Regulatory
// filings change once a quarter, market data daily; research synthesis is
// never cached because its confidence only holds for the query that
// produced it.
var defaultTTLHours = map[string]float64{
	"quarterly_financials": 168,
	"company_profile":      24,
	"competitor_lookup":    24,
	"top_companies":        24,
	"ai_disruption":        0,
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
	c.Sources.applyDefaults(keys)
	c.Sectors.applyDefaults(keys)
	c.Executor.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("cache.backend", &c.Backend, defaultCacheBackend),
		stringFieldDefault("cache.path", &c.Path, defaultCachePath),
		fieldDefault{
			key:   "cache.default_ttl_hours",
			need:  func() bool { return c.DefaultTTLH <= 0 },
			apply: func() { c.DefaultTTLH = defaultCacheTTLHours },
		},
		fieldDefault{
			key:   "cache.stale_fallback",
			need:  func() bool { return true },
			apply: func() { c.StaleFallback = true },
		},
		fieldDefault{
			key:   "cache.stale_factor",
			need:  func() bool { return c.StaleFactor <= 0 || c.StaleFactor > 1 },
			apply: func() { c.StaleFactor = defaultCacheStaleShare },
		},
	)
	if c.TTLHours == nil {
		c.TTLHours = make(map[string]float64, len(defaultTTLHours))
	}
	// per-capability merge: an explicit 0 in the file survives, only
	// absent capabilities pick up the built-in volatility table
	for capability, hours := range defaultTTLHours {
		if _, ok := c.TTLHours[capability]; !ok {
			c.TTLHours[capability] = hours
		}
	}
}

func (s *SourcesConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("sources.edgar.base_url", &s.Edgar.BaseURL, defaultEdgarBaseURL),
		stringFieldDefault("sources.edgar.ticker_map_url", &s.Edgar.TickerMapURL, defaultEdgarTickerMapURL),
		fieldDefault{
			key:   "sources.edgar.timeout_seconds",
			need:  func() bool { return s.Edgar.TimeoutSeconds <= 0 },
			apply: func() { s.Edgar.TimeoutSeconds = defaultEdgarTimeout },
		},
		fieldDefault{
			key:   "sources.edgar.rate.per_minute",
			need:  func() bool { return s.Edgar.Rate.PerMinute <= 0 },
			apply: func() { s.Edgar.Rate.PerMinute = defaultEdgarPerMinute },
		},
		stringFieldDefault("sources.polygon.base_url", &s.Polygon.BaseURL, defaultPolygonBaseURL),
		fieldDefault{
			key:   "sources.polygon.max_candidates",
			need:  func() bool { return s.Polygon.MaxCandidates <= 0 },
			apply: func() { s.Polygon.MaxCandidates = defaultPolygonCandidates },
		},
		fieldDefault{
			key:   "sources.polygon.rate.per_minute",
			need:  func() bool { return s.Polygon.Rate.PerMinute <= 0 },
			apply: func() { s.Polygon.Rate.PerMinute = defaultPolygonPerMinute },
		},
		fieldDefault{
			key:   "sources.polygon.enabled",
			need:  func() bool { return true },
			apply: func() { s.Polygon.Enabled = true },
		},
		stringFieldDefault("sources.yahoo.base_url", &s.Yahoo.BaseURL, defaultYahooBaseURL),
		fieldDefault{
			key:   "sources.yahoo.rate.per_minute",
			need:  func() bool { return s.Yahoo.Rate.PerMinute <= 0 },
			apply: func() { s.Yahoo.Rate.PerMinute = defaultYahooPerMinute },
		},
		fieldDefault{
			key:   "sources.yahoo.enabled",
			need:  func() bool { return true },
			apply: func() { s.Yahoo.Enabled = true },
		},
		stringFieldDefault("sources.webresearch.search_base_url", &s.WebResearch.SearchBaseURL, defaultResearchSearchURL),
		stringFieldDefault("sources.webresearch.llm_base_url", &s.WebResearch.LLMBaseURL, defaultResearchLLMURL),
		stringFieldDefault("sources.webresearch.llm_model", &s.WebResearch.LLMModel, defaultResearchLLMModel),
		fieldDefault{
			key:   "sources.webresearch.max_results",
			need:  func() bool { return s.WebResearch.MaxResults <= 0 },
			apply: func() { s.WebResearch.MaxResults = defaultResearchMaxResults },
		},
		fieldDefault{
			key:   "sources.webresearch.rate.per_minute",
			need:  func() bool { return s.WebResearch.Rate.PerMinute <= 0 },
			apply: func() { s.WebResearch.Rate.PerMinute = defaultResearchPerMinute },
		},
		fieldDefault{
			key:   "sources.webresearch.rate.per_day",
			need:  func() bool { return s.WebResearch.Rate.PerDay <= 0 },
			apply: func() { s.WebResearch.Rate.PerDay = defaultResearchPerDay },
		},
	)
}

func (s *SectorsConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("sectors.path", &s.Path, defaultSectorsPath),
	)
}

func (e *ExecutorConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "executor.max_concurrent",
			need:  func() bool { return e.MaxConcurrent <= 0 },
			apply: func() { e.MaxConcurrent = defaultExecutorMaxConcurrent },
		},
		fieldDefault{
			key:   "executor.fetch_timeout_seconds",
			need:  func() bool { return e.FetchTimeoutSeconds <= 0 },
			apply: func() { e.FetchTimeoutSeconds = defaultExecutorFetchTimeout },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
