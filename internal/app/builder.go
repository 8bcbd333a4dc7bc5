package app

import (
	"fmt"
	"time"

	"finsight/internal/cache"
	"finsight/internal/config"
	"finsight/internal/executor"
	"finsight/internal/ratelimit"
	"finsight/internal/resolver"
	"finsight/internal/source"
	"finsight/internal/source/edgar"
	"finsight/internal/source/polygon"
	"finsight/internal/source/sectors"
	"finsight/internal/source/webresearch"
	"finsight/internal/source/yahoo"
)

// buildStore picks the cache backend from config.
func buildStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "sqlite":
		store, err := cache.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening cache db failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func buildLimiter(cfg config.SourcesConfig) *ratelimit.Limiter {
	budgets := make(map[string]ratelimit.Budget)
	for identity, rc := range cfg.RateBudgets() {
		budgets[identity] = ratelimit.Budget{PerMinute: rc.PerMinute, PerDay: rc.PerDay}
	}
	return ratelimit.NewLimiter(budgets)
}

// buildAdapters constructs every configured data source. The market
// cascade is ordered by confidence ceiling, most authoritative first.
func buildAdapters(cfg config.SourcesConfig, universe *sectors.Registry) (executor.Adapters, error) {
	regulatory, err := edgar.New(edgar.Config{
		BaseURL:      cfg.Edgar.BaseURL,
		TickerMapURL: cfg.Edgar.TickerMapURL,
		UserAgent:    cfg.Edgar.UserAgent,
		HTTPTimeout:  time.Duration(cfg.Edgar.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return executor.Adapters{}, fmt.Errorf("building edgar adapter failed: %w", err)
	}

	var market []source.Adapter
	if cfg.Polygon.Enabled {
		poly, err := polygon.New(polygon.Config{
			BaseURL:       cfg.Polygon.BaseURL,
			APIKey:        cfg.Polygon.APIKey,
			MaxCandidates: cfg.Polygon.MaxCandidates,
		}, universe)
		if err != nil {
			return executor.Adapters{}, fmt.Errorf("building polygon adapter failed: %w", err)
		}
		market = append(market, poly)
	}
	if cfg.Yahoo.Enabled {
		market = append(market, yahoo.New(yahoo.Config{BaseURL: cfg.Yahoo.BaseURL}, universe))
	}
	if len(market) == 0 {
		return executor.Adapters{}, fmt.Errorf("no market data source enabled")
	}

	research, err := webresearch.New(webresearch.Config{
		SearchBaseURL: cfg.WebResearch.SearchBaseURL,
		SearchAPIKey:  cfg.WebResearch.SearchAPIKey,
		MaxResults:    cfg.WebResearch.MaxResults,
		LLMBaseURL:    cfg.WebResearch.LLMBaseURL,
		LLMAPIKey:     cfg.WebResearch.LLMAPIKey,
		LLMModel:      cfg.WebResearch.LLMModel,
	})
	if err != nil {
		return executor.Adapters{}, fmt.Errorf("building webresearch adapter failed: %w", err)
	}

	return executor.Adapters{Regulatory: regulatory, Market: market, Research: research}, nil
}

func buildResolver(cfg config.CacheConfig, execCfg config.ExecutorConfig, store cache.Store, limits *ratelimit.Limiter) *resolver.Resolver {
	ttls := make(map[string]time.Duration, len(cfg.TTLHours))
	for capability, hours := range cfg.TTLHours {
		ttls[capability] = time.Duration(hours * float64(time.Hour))
	}
	return resolver.New(store, limits, resolver.Options{
		TTLs:          ttls,
		DefaultTTL:    time.Duration(cfg.DefaultTTLH * float64(time.Hour)),
		StaleFallback: cfg.StaleFallback,
		StaleFactor:   cfg.StaleFactor,
		FetchTimeout:  time.Duration(execCfg.FetchTimeoutSeconds) * time.Second,
	})
}
