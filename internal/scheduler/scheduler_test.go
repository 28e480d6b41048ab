package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/config"
	"CurrencyLens/internal/model"
	"CurrencyLens/internal/runner"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, sender Sender) *Scheduler {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "CURRENCYLENS_SOURCE",
		"RAW_DATA_DIR", "PROCESSED_DATA_DIR", "SQLITE_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Output.FiguresDir = filepath.Join(t.TempDir(), "figures")
	cfg.Analysis.StartYear, cfg.Analysis.EndYear = 2023, 2024

	f := &collector.MockFetcher{Series: []model.Series{
		collector.GenerateMockSeries("CHF_USD", 1.1, 0.001, model.Day(2024, time.June, 28), 120),
		collector.GenerateMockSeries("CHF_JPY", 160, -0.002, model.Day(2024, time.June, 28), 120),
	}}
	r := runner.New(collector.NewCollector(f, zerolog.Nop()), zerolog.Nop(), nil, 1)
	return NewScheduler(context.Background(), cfg, r, sender, zerolog.Nop())
}

func TestRunJob_WritesChartAndSends(t *testing.T) {
	sender := &recordingSender{}
	s := newTestScheduler(t, sender)

	job := config.Job{Name: "weekly-var", Cron: "0 0 8 * * 1", Metric: "var", StartYear: 2024, EndYear: 2024, Confidence: 0.95}
	report, err := s.RunJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, report.Status)
	assert.Len(t, report.Entries, 2)

	_, err = os.Stat(filepath.Join(s.Config.Output.FiguresDir, "var_2024_2024.html"))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Value at Risk (VaR) at 95% Confidence")
}

func TestRunJob_InvalidRange(t *testing.T) {
	s := newTestScheduler(t, nil)
	_, err := s.RunJob(context.Background(), config.Job{Name: "x", Metric: "mdd", StartYear: 2025, EndYear: 2020})
	require.ErrorIs(t, err, model.ErrInvalidRange)
}

func TestRegisterJobs(t *testing.T) {
	s := newTestScheduler(t, nil)
	require.NoError(t, s.RegisterJobs([]config.Job{{Name: "a", Cron: "0 0 8 * * 1", Metric: "var"}}))
	assert.Len(t, s.Cron.Entries(), 1)
	require.Error(t, s.RegisterJobs([]config.Job{{Name: "b", Cron: "not a cron", Metric: "var"}}))
}

func TestHandleCommand(t *testing.T) {
	s := newTestScheduler(t, nil)
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/help", "Available commands"},
		{"", "Available commands"},
		{"/sharpe", "Unknown command"},
		{"/var", "Value at Risk (VaR) at 95% Confidence"},
		{"/var@CurrencyLensBot 2024 2024 0.99", "Value at Risk (VaR) at 99% Confidence"},
		{"/volatility 2024 2024", "Annualized Volatility"},
		{"/mdd_inverse 2024 2024", "Maximum Drawdown (inverse quote)"},
		{"/depreciation 2024 2024", "CHF_JPY"},
		{"/mdd 2024", "expected both start and end year"},
		{"/mdd 2024 2024 0.9", "too many arguments"},
		{"/var 2024 2024 1.5", "confidence level must lie strictly between 0 and 1"},
		{"/var 2024 2020", "start year is after end year"},
		{"/var abc 2020", "invalid start year"},
		{"/VaR 2024 2024 0.99", "Value at Risk (VaR) at 99% Confidence"},
		{"/Volatility 2024 2024 0.9", "too many arguments"},
		{"/var <b> 2024", `invalid start year &#34;&lt;b&gt;&#34;`},
		{"/depreciation 1990 1991", "No valid results"},
	}
	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			assert.Contains(t, s.HandleCommand(ctx, tc.command), tc.want)
		})
	}
}
