package scheduler

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"CurrencyLens/internal/calculator"
	"CurrencyLens/internal/chart"
	"CurrencyLens/internal/config"
	"CurrencyLens/internal/model"
	"CurrencyLens/internal/notifier"
	"CurrencyLens/internal/runner"
)

// Sender delivers report summaries. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int, base time.Duration) error
}

// Scheduler runs configured report jobs on cron schedules and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *runner.Runner
	Config   *config.Config
	Notifier Sender // nil disables delivery
	Logger   zerolog.Logger
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *config.Config, r *runner.Runner, n Sender, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   r,
		Config:   cfg,
		Notifier: n,
		Logger:   logger.With().Str("component", "scheduler").Logger(),
		Ctx:      ctx,
	}
}

// RegisterJobs adds one cron entry per job.
func (s *Scheduler) RegisterJobs(jobs []config.Job) error {
	for _, job := range jobs {
		if _, err := s.Cron.AddFunc(job.Cron, func() {
			if _, err := s.RunJob(s.Ctx, job); err != nil {
				s.Logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
			}
		}); err != nil {
			return fmt.Errorf("register job %s: %w", job.Name, err)
		}
		s.Logger.Info().Str("job", job.Name).Str("cron", job.Cron).Msg("job registered")
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunAllNow executes every job once, in order.
func (s *Scheduler) RunAllNow(jobs []config.Job) {
	for _, job := range jobs {
		if _, err := s.RunJob(s.Ctx, job); err != nil {
			s.Logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
		}
	}
}

// RunJob computes the job's report, writes its bar chart into the figures
// directory and pushes the summary when a notifier is configured.
func (s *Scheduler) RunJob(ctx context.Context, job config.Job) (*model.Report, error) {
	log := s.Logger.With().Str("job", job.Name).Logger()
	log.Info().Msg("running job")

	m, err := s.Config.Metric(job.Metric, job.Confidence)
	if err != nil {
		return nil, err
	}
	report, err := s.Runner.Run(ctx, runner.Request{StartYear: job.StartYear, EndYear: job.EndYear, Metric: m})
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s_%d_%d", m.Name, job.StartYear, job.EndYear)
	path, err := chart.WriteFile(s.Config.Output.FiguresDir, name, chart.Bar(report))
	if err != nil {
		log.Error().Err(err).Msg("write chart")
	} else {
		log.Info().Str("path", path).Msg("chart written")
	}

	s.trySend(ctx, notifier.FormatTelegram(report))
	return report, nil
}

const helpText = `Available commands:
/var [start end [confidence]] - Value at Risk
/volatility [start end] - annualized volatility
/mdd [start end] - maximum drawdown
/mdd_inverse [start end] - maximum drawdown of the inverse quote
/depreciation [start end] - depreciation over the window
/help - this message`

// HandleCommand processes a chat command such as "/var 2000 2024 0.99" and
// returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "help" || name == "start" {
		return helpText
	}
	base, err := calculator.Lookup(name, calculator.Params{})
	if err != nil {
		return "Unknown command.\n\n" + helpText
	}

	job, err := s.parseArgs(base.Name, fields[1:])
	if err != nil {
		return errorReply(err)
	}
	m, err := s.Config.Metric(job.Metric, job.Confidence)
	if err != nil {
		return errorReply(err)
	}
	report, err := s.Runner.Run(ctx, runner.Request{StartYear: job.StartYear, EndYear: job.EndYear, Metric: m})
	if err != nil {
		s.Logger.Warn().Err(err).Str("command", command).Msg("command failed")
		return errorReply(err)
	}
	return notifier.FormatTelegram(report)
}

// errorReply escapes err for Telegram's HTML parse mode; it may echo user input.
func errorReply(err error) string {
	return "⚠️ " + html.EscapeString(err.Error())
}

func (s *Scheduler) parseArgs(metric string, args []string) (config.Job, error) {
	job := config.Job{
		Name:       metric,
		Metric:     metric,
		StartYear:  s.Config.Analysis.StartYear,
		EndYear:    s.Config.Analysis.EndYear,
		Confidence: s.Config.Analysis.Confidence,
	}
	switch {
	case len(args) == 0:
		return job, nil
	case len(args) == 1:
		return job, fmt.Errorf("expected both start and end year")
	case len(args) > 3 || (len(args) == 3 && metric != calculator.NameVaR):
		return job, fmt.Errorf("too many arguments")
	}

	var err error
	if job.StartYear, err = strconv.Atoi(args[0]); err != nil {
		return job, fmt.Errorf("invalid start year %q", args[0])
	}
	if job.EndYear, err = strconv.Atoi(args[1]); err != nil {
		return job, fmt.Errorf("invalid end year %q", args[1])
	}
	if len(args) == 3 {
		if job.Confidence, err = strconv.ParseFloat(args[2], 64); err != nil {
			return job, fmt.Errorf("invalid confidence %q", args[2])
		}
		if err := calculator.ValidateConfidence(job.Confidence); err != nil {
			return job, err
		}
	}
	return job, nil
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3, time.Second); err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}
