package webresearch

import (
	"strings"
	"time"
)

type Config struct {
	SearchBaseURL string
	SearchAPIKey  string
	MaxResults    int

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	HTTPTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.SearchBaseURL = strings.TrimSpace(out.SearchBaseURL)
	if out.SearchBaseURL == "" {
		out.SearchBaseURL = "https://api.tavily.com"
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 5
	}
	out.LLMBaseURL = strings.TrimRight(strings.TrimSpace(out.LLMBaseURL), "/")
	if out.LLMBaseURL == "" {
		out.LLMBaseURL = "https://api.openai.com/v1"
	}
	out.LLMModel = strings.TrimSpace(out.LLMModel)
	if out.LLMModel == "" {
		out.LLMModel = "gpt-4o-mini"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 60 * time.Second
	}
	return out
}
