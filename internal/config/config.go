package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"CurrencyLens/internal/calculator"
	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/model"
)

// Data source types.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceYahoo  = "yahoo"
)

// Job is one scheduled report.
type Job struct {
	Name       string  `yaml:"name"`
	Cron       string  `yaml:"cron"`
	Metric     string  `yaml:"metric"`
	StartYear  int     `yaml:"start_year"`
	EndYear    int     `yaml:"end_year"`
	Confidence float64 `yaml:"confidence"`
}

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Type         string   `yaml:"type"`
		RawDir       string   `yaml:"raw_dir"`
		ProcessedDir string   `yaml:"processed_dir"`
		DateLayouts  []string `yaml:"date_layouts"`
		DayFirst     bool     `yaml:"day_first"` // read ambiguous slash dates as DD/MM/YYYY
		Yahoo        struct {
			Range   string            `yaml:"range"`
			Tickers map[string]string `yaml:"tickers"`
		} `yaml:"yahoo"`
	} `yaml:"data_source"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Analysis struct {
		StartYear  int               `yaml:"start_year"`
		EndYear    int               `yaml:"end_year"`
		Confidence float64           `yaml:"confidence"`
		Workers    int               `yaml:"workers"`
		Highlight  map[string]string `yaml:"highlight"` // metric name -> lowest|highest|largest_magnitude
	} `yaml:"analysis"`
	Output struct {
		FiguresDir string `yaml:"figures_dir"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Jobs []Job `yaml:"jobs"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"HTTPS_PROXY", &c.Proxy},
		{"CURRENCYLENS_SOURCE", &c.DataSource.Type},
		{"RAW_DATA_DIR", &c.DataSource.RawDir},
		{"PROCESSED_DATA_DIR", &c.DataSource.ProcessedDir},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Type == "" {
		c.DataSource.Type = SourceCSV
	}
	if c.DataSource.RawDir == "" {
		c.DataSource.RawDir = "data/raw"
	}
	if c.DataSource.ProcessedDir == "" {
		c.DataSource.ProcessedDir = "data/processed"
	}
	if c.DataSource.Yahoo.Range == "" {
		c.DataSource.Yahoo.Range = "max"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/currencylens.db"
	}
	if c.Analysis.StartYear == 0 {
		c.Analysis.StartYear = 2000
	}
	if c.Analysis.EndYear == 0 {
		c.Analysis.EndYear = 2024
	}
	if c.Analysis.Confidence == 0 {
		c.Analysis.Confidence = calculator.DefaultConfidence
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 1
	}
	if c.Output.FiguresDir == "" {
		c.Output.FiguresDir = "figures"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	c.normalizeHighlight()
	for i := range c.Schedule.Jobs {
		j := &c.Schedule.Jobs[i]
		if j.StartYear == 0 {
			j.StartYear = c.Analysis.StartYear
		}
		if j.EndYear == 0 {
			j.EndYear = c.Analysis.EndYear
		}
		if j.Confidence == 0 {
			j.Confidence = c.Analysis.Confidence
		}
		if j.Name == "" {
			j.Name = j.Metric
		}
	}
}

// normalizeHighlight rekeys analysis.highlight by canonical metric name and
// lowercases the policies. Unknown keys are kept for Validate to reject.
func (c *Config) normalizeHighlight() {
	if len(c.Analysis.Highlight) == 0 {
		return
	}
	out := make(map[string]string, len(c.Analysis.Highlight))
	for key, h := range c.Analysis.Highlight {
		if m, err := calculator.Lookup(key, calculator.Params{}); err == nil {
			key = m.Name
		}
		out[key] = strings.ToLower(strings.TrimSpace(h))
	}
	c.Analysis.Highlight = out
}

func (c *Config) highlightFor(metric string) (string, bool) {
	if h, ok := c.Analysis.Highlight[metric]; ok {
		return h, true
	}
	for key, h := range c.Analysis.Highlight {
		if m, err := calculator.Lookup(key, calculator.Params{}); err == nil && m.Name == metric {
			return h, true
		}
	}
	return "", false
}

// DateLayouts returns the layouts the CSV source parses dates with. Explicit
// data_source.date_layouts win; day_first swaps in the day-first set.
func (c *Config) DateLayouts() []string {
	switch {
	case len(c.DataSource.DateLayouts) > 0:
		return c.DataSource.DateLayouts
	case c.DataSource.DayFirst:
		return collector.DayFirstDateLayouts
	}
	return collector.DefaultDateLayouts
}

// Validate checks that the configuration is usable. Telegram settings are
// optional but must come as a pair.
func (c *Config) Validate() error {
	switch c.DataSource.Type {
	case SourceCSV, SourceSQLite:
	case SourceYahoo:
		if len(c.DataSource.Yahoo.Tickers) == 0 {
			return fmt.Errorf("data_source.yahoo.tickers is required for the yahoo source")
		}
	default:
		return fmt.Errorf("data_source.type %q must be one of csv, sqlite, yahoo", c.DataSource.Type)
	}
	if c.Analysis.StartYear > c.Analysis.EndYear {
		return fmt.Errorf("analysis: %w: %d > %d", model.ErrInvalidRange, c.Analysis.StartYear, c.Analysis.EndYear)
	}
	if err := calculator.ValidateConfidence(c.Analysis.Confidence); err != nil {
		return fmt.Errorf("analysis.confidence: %w", err)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	for metric, h := range c.Analysis.Highlight {
		if _, err := calculator.Lookup(metric, calculator.Params{}); err != nil {
			return fmt.Errorf("analysis.highlight: %w", err)
		}
		if _, err := model.ParseHighlight(strings.ToLower(h)); err != nil {
			return fmt.Errorf("analysis.highlight.%s: %w", metric, err)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for i, j := range c.Schedule.Jobs {
		if _, err := parser.Parse(j.Cron); err != nil {
			return fmt.Errorf("schedule.jobs[%d] (%s): cron %q: %w", i, j.Name, j.Cron, err)
		}
		m, err := calculator.Lookup(j.Metric, calculator.Params{Confidence: j.Confidence})
		if err != nil {
			return fmt.Errorf("schedule.jobs[%d] (%s): %w", i, j.Name, err)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("schedule.jobs[%d] (%s): %w", i, j.Name, err)
		}
		if j.StartYear > j.EndYear {
			return fmt.Errorf("schedule.jobs[%d] (%s): %w", i, j.Name, model.ErrInvalidRange)
		}
	}
	return nil
}

// TelegramEnabled reports whether reports should be pushed to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Metric resolves name with the configured confidence and highlight override.
func (c *Config) Metric(name string, confidence float64) (calculator.Metric, error) {
	if confidence == 0 {
		confidence = c.Analysis.Confidence
	}
	m, err := calculator.Lookup(name, calculator.Params{Confidence: confidence})
	if err != nil {
		return calculator.Metric{}, err
	}
	if h, ok := c.highlightFor(m.Name); ok {
		policy, err := model.ParseHighlight(strings.ToLower(h))
		if err != nil {
			return calculator.Metric{}, err
		}
		m = m.WithHighlight(policy)
	}
	if err := m.Validate(); err != nil {
		return calculator.Metric{}, err
	}
	return m, nil
}
