package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
sources:
  edgar:
    user_agent: "finsight test suite test@example.com"
  polygon:
    api_key: "pk_test"
  webresearch:
    search_api_key: "tv_test"
    llm_api_key: "sk_test"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 0.5, cfg.Cache.StaleFactor)
	assert.True(t, cfg.Cache.StaleFallback)
	assert.Equal(t, float64(168), cfg.Cache.TTLHours["quarterly_financials"])
	assert.Equal(t, float64(0), cfg.Cache.TTLHours["ai_disruption"])
	assert.Equal(t, "https://data.sec.gov", cfg.Sources.Edgar.BaseURL)
	assert.Equal(t, 10, cfg.Sources.Edgar.Rate.PerMinute)
	assert.True(t, cfg.Sources.Polygon.Enabled)
	assert.Equal(t, 4, cfg.Executor.MaxConcurrent)
	assert.Equal(t, "configs/sectors.yaml", cfg.Sectors.Path)
}

func TestLoadKeepsExplicitZeroTTL(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalConfig+`
cache:
  ttl_hours:
    company_profile: 0
`))
	require.NoError(t, err)
	assert.Equal(t, float64(0), cfg.Cache.TTLHours["company_profile"])
	// untouched capabilities still pick up the volatility table
	assert.Equal(t, float64(24), cfg.Cache.TTLHours["top_companies"])
}

func TestLoadRejectsMissingEdgarUserAgent(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", `
sources:
  polygon:
    api_key: "pk_test"
  webresearch:
    search_api_key: "tv_test"
    llm_api_key: "sk_test"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_agent")
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(base, []byte(minimalConfig+`
app:
  log_level: debug
`), 0o644))
	main := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(main, []byte(`
include:
  - base.yaml
app:
  http_addr: ":9100"
`), 0o644))

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9100", cfg.App.HTTPAddr)
}
