package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/model"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "CURRENCYLENS_SOURCE",
		"RAW_DATA_DIR", "PROCESSED_DATA_DIR", "SQLITE_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.DataSource.Type)
	assert.Equal(t, "data/raw", cfg.DataSource.RawDir)
	assert.Equal(t, "data/processed", cfg.DataSource.ProcessedDir)
	assert.Equal(t, 2000, cfg.Analysis.StartYear)
	assert.Equal(t, 2024, cfg.Analysis.EndYear)
	assert.Equal(t, 0.95, cfg.Analysis.Confidence)
	assert.Equal(t, 1, cfg.Analysis.Workers)
	assert.False(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_source:
  type: yahoo
  yahoo:
    tickers:
      CHF_USD: CHFUSD=X
analysis:
  start_year: 2010
  confidence: 0.99
  highlight:
    volatility: highest
schedule:
  jobs:
    - cron: "0 0 9 * * 1"
      metric: var
`), 0o644))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceYahoo, cfg.DataSource.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	require.Len(t, cfg.Schedule.Jobs, 1)
	job := cfg.Schedule.Jobs[0]
	assert.Equal(t, "var", job.Name)
	assert.Equal(t, 2010, job.StartYear)
	assert.Equal(t, 2024, job.EndYear)
	assert.Equal(t, 0.99, job.Confidence)

	m, err := cfg.Metric("VOLATILITY", 0)
	require.NoError(t, err)
	assert.Equal(t, model.HighlightHighest, m.Highlight)

	v, err := cfg.Metric("var", 0)
	require.NoError(t, err)
	assert.Equal(t, "Value at Risk (VaR) at 99% Confidence", v.Label)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown source", func(c *Config) { c.DataSource.Type = "ftp" }, "must be one of"},
		{"yahoo without tickers", func(c *Config) { c.DataSource.Type = SourceYahoo }, "tickers is required"},
		{"reversed years", func(c *Config) { c.Analysis.StartYear = 2030 }, "start year is after end year"},
		{"confidence", func(c *Config) { c.Analysis.Confidence = 1.5 }, "analysis.confidence"},
		{"workers", func(c *Config) { c.Analysis.Workers = -2 }, "workers"},
		{"telegram half set", func(c *Config) { c.Telegram.BotToken = "t" }, "must be set together"},
		{"bad highlight", func(c *Config) { c.Analysis.Highlight = map[string]string{"mdd": "loudest"} }, "unknown highlight"},
		{"bad highlight metric", func(c *Config) { c.Analysis.Highlight = map[string]string{"sharpe": "lowest"} }, "unknown metric"},
		{"bad cron", func(c *Config) { c.Schedule.Jobs = []Job{{Name: "x", Cron: "every day", Metric: "var", StartYear: 2000, EndYear: 2001, Confidence: 0.95}} }, "cron"},
		{"bad job metric", func(c *Config) { c.Schedule.Jobs = []Job{{Name: "x", Cron: "0 0 9 * * *", Metric: "beta", StartYear: 2000, EndYear: 2001, Confidence: 0.95}} }, "unknown metric"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMetric_HighlightKeyIsCaseInsensitive(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  highlight:
    VaR: Highest
    MDD_Inverse: largest_magnitude
`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, map[string]string{"var": "highest", "mdd_inverse": "largest_magnitude"}, cfg.Analysis.Highlight)

	m, err := cfg.Metric("var", 0)
	require.NoError(t, err)
	assert.Equal(t, model.HighlightHighest, m.Highlight)

	// Maps set after Load resolve the same way.
	cfg.Analysis.Highlight = map[string]string{"Depreciation": "highest"}
	require.NoError(t, cfg.Validate())
	d, err := cfg.Metric("depreciation", 0)
	require.NoError(t, err)
	assert.Equal(t, model.HighlightHighest, d.Highlight)
}

func TestDateLayouts(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, collector.DefaultDateLayouts, cfg.DateLayouts())

	cfg.DataSource.DayFirst = true
	assert.Equal(t, collector.DayFirstDateLayouts, cfg.DateLayouts())
	assert.Contains(t, cfg.DateLayouts(), "02/01/2006")

	cfg.DataSource.DateLayouts = []string{"2006/01/02"}
	assert.Equal(t, []string{"2006/01/02"}, cfg.DateLayouts())
}
