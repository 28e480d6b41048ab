// Package runner drives the analysis pipeline: load every series, restrict it
// to the requested window, compute one metric per series and aggregate the
// values into a report. A series that cannot produce a value is skipped with
// a typed reason; it never aborts the batch.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"CurrencyLens/internal/calculator"
	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/model"
	"CurrencyLens/internal/window"
)

// Request selects the window and the metric of one batch run.
type Request struct {
	StartYear int
	EndYear   int
	Metric    calculator.Metric
}

// Runner computes metric reports over every series the collector provides.
type Runner struct {
	Collector *collector.Collector
	Logger    zerolog.Logger
	Metrics   *Metrics // optional
	Workers   int      // <= 1 processes series sequentially
}

// New creates a Runner.
func New(col *collector.Collector, logger zerolog.Logger, metrics *Metrics, workers int) *Runner {
	return &Runner{
		Collector: col,
		Logger:    logger.With().Str("component", "runner").Logger(),
		Metrics:   metrics,
		Workers:   workers,
	}
}

// Validate checks the caller's parameters without touching any series.
func (req Request) Validate() (model.Window, error) {
	w, err := window.Years(req.StartYear, req.EndYear)
	if err != nil {
		return model.Window{}, err
	}
	if err := req.Metric.Validate(); err != nil {
		return model.Window{}, err
	}
	return w, nil
}

// Run validates req, loads every series and processes them.
func (r *Runner) Run(ctx context.Context, req Request) (*model.Report, error) {
	if _, err := req.Validate(); err != nil {
		return nil, err
	}
	batch, err := r.Collector.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.Process(ctx, batch, req)
}

type outcome struct {
	entry model.Entry
	skip  *model.Skip
}

// Process applies the range filter and the metric to every series of batch.
// Load failures already recorded in the batch are carried into the report's
// skips ahead of the per-series ones.
func (r *Runner) Process(ctx context.Context, batch *model.Batch, req Request) (*model.Report, error) {
	w, err := req.Validate()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	log := r.Logger.With().Str("metric", req.Metric.Name).Stringer("window", w).Logger()

	report := &model.Report{Metric: req.Metric.MetricInfo, Window: w}
	for _, f := range batch.Failures {
		r.Metrics.recordSeries(req.Metric.Name, string(f.Reason))
		report.Skipped = append(report.Skipped, f)
	}

	results := make([]outcome, len(batch.Series))
	if r.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.Workers)
		for i, s := range batch.Series {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = r.one(log, s, w, req.Metric)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, s := range batch.Series {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = r.one(log, s, w, req.Metric)
		}
	}

	for _, res := range results {
		if res.skip != nil {
			report.Skipped = append(report.Skipped, *res.skip)
			continue
		}
		report.Entries = append(report.Entries, res.entry)
	}

	switch {
	case len(batch.Series) == 0 && len(batch.Failures) == 0:
		report.Status = model.StatusNoDataAvailable
	case len(report.Entries) == 0:
		report.Status = model.StatusNoValidResults
	default:
		report.Status = model.StatusOK
	}

	took := time.Since(started)
	r.Metrics.recordBatch(req.Metric.Name, report.Status, took)
	log.Info().Int("values", len(report.Entries)).Int("skipped", len(report.Skipped)).
		Str("status", string(report.Status)).Dur("took", took).Msg("batch finished")
	return report, nil
}

func (r *Runner) one(log zerolog.Logger, s model.Series, w model.Window, m calculator.Metric) outcome {
	value, err := compute(s, w, m)
	if err != nil {
		skip := model.NewSkip(s.Name, err)
		r.Metrics.recordSeries(m.Name, string(skip.Reason))
		log.Warn().Err(err).Str("instrument", s.Name).Str("reason", string(skip.Reason)).Msg("series skipped")
		return outcome{skip: &skip}
	}
	r.Metrics.recordSeries(m.Name, "ok")
	log.Info().Str("instrument", s.Name).Float64("value", value).Msg("series processed")
	return outcome{entry: model.Entry{Instrument: s.Name, Value: value}}
}

func compute(s model.Series, w model.Window, m calculator.Metric) (float64, error) {
	filtered, err := window.Filter(s, w)
	if err != nil {
		return 0, err
	}
	value, err := m.Compute(filtered)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w", m.Name, err)
	}
	return value, nil
}

// Align loads every series and truncates them to the common window of the
// shortest-spanned one. Load failures are listed in the alignment.
func (r *Runner) Align(ctx context.Context) (*model.Alignment, error) {
	batch, err := r.Collector.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	a, err := window.Align(batch.Series)
	if err != nil {
		return nil, err
	}
	a.Failures = batch.Failures
	if a.Status == model.StatusNoDataAvailable && len(a.Failures) > 0 {
		a.Status = model.StatusNoValidResults
	}

	ev := r.Logger.Info().Str("status", string(a.Status)).Int("series", len(a.Series)).
		Int("dropped", len(a.Dropped)).Int("failed", len(a.Failures))
	if a.Status == model.StatusOK {
		ev = ev.Str("reference", a.Reference).Stringer("window", a.Window)
	}
	ev.Msg("series aligned")
	return a, nil
}
