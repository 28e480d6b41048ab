package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"CurrencyLens/internal/model"
)

// MockFetcher serves fixed series for development and testing.
type MockFetcher struct {
	Series []model.Series
	Errors map[string]error // instrument -> error returned by FetchSeries
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Instruments(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.Series)+len(m.Errors))
	seen := make(map[string]bool)
	for _, s := range m.Series {
		names = append(names, s.Name)
		seen[s.Name] = true
	}
	var failing []string
	for name := range m.Errors {
		if !seen[name] {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	return append(names, failing...), nil
}

func (m *MockFetcher) FetchSeries(_ context.Context, instrument string) (model.Series, error) {
	if err, ok := m.Errors[instrument]; ok {
		return model.Series{}, err
	}
	for _, s := range m.Series {
		if s.Name == instrument {
			return model.NewSeries(s.Name, s.Observations), nil
		}
	}
	return model.Series{}, fmt.Errorf("unknown instrument %q", instrument)
}

// GenerateMockSeries builds count daily observations ending at end, drifting
// by step per day from basePrice.
func GenerateMockSeries(name string, basePrice, step float64, end time.Time, count int) model.Series {
	obs := make([]model.Observation, count)
	for i := 0; i < count; i++ {
		obs[i] = model.Observation{
			Date:  model.Truncate(end.AddDate(0, 0, -(count - 1 - i))),
			Price: basePrice * (1 + float64(i)*step),
		}
	}
	return model.Series{Name: name, Observations: obs}
}

// Collector loads series through a Fetcher and enforces the observation invariants.
type Collector struct {
	Fetcher Fetcher
	Logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, logger zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Logger:  logger.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// LoadOne fetches and validates a single instrument. Every failure wraps
// model.ErrLoadFailure.
func (c *Collector) LoadOne(ctx context.Context, instrument string) (model.Series, error) {
	s, err := c.Fetcher.FetchSeries(ctx, instrument)
	if err != nil {
		return model.Series{}, fmt.Errorf("%w: %s: %v", model.ErrLoadFailure, instrument, err)
	}
	s.Name = instrument
	if err := Validate(s); err != nil {
		return model.Series{}, fmt.Errorf("%w: %v", model.ErrLoadFailure, err)
	}
	return s, nil
}

// LoadAll fetches every instrument the fetcher knows. Individual failures are
// recorded in the batch; only a failure to list instruments is returned.
func (c *Collector) LoadAll(ctx context.Context) (*model.Batch, error) {
	names, err := c.Fetcher.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	c.Logger.Debug().Int("instruments", len(names)).Msg("loading series")

	batch := &model.Batch{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := c.LoadOne(ctx, name)
		if err != nil {
			c.Logger.Warn().Err(err).Str("instrument", name).Msg("series skipped")
			batch.Failures = append(batch.Failures, model.NewSkip(name, err))
			continue
		}
		first, last, _ := s.Bounds()
		c.Logger.Debug().Str("instrument", name).Int("observations", s.Len()).
			Time("first", first).Time("last", last).Msg("series loaded")
		batch.Series = append(batch.Series, s)
	}
	return batch, nil
}

// Validate checks that prices are positive and dates unique.
func Validate(s model.Series) error {
	seen := make(map[time.Time]struct{}, s.Len())
	for i, o := range s.Observations {
		if !(o.Price > 0) {
			return fmt.Errorf("%s: observation %d on %s has non-positive price %v",
				s.Name, i, o.Date.Format(model.DateFormat), o.Price)
		}
		day := model.Truncate(o.Date)
		if _, dup := seen[day]; dup {
			return fmt.Errorf("%s: duplicate date %s", s.Name, day.Format(model.DateFormat))
		}
		seen[day] = struct{}{}
	}
	return nil
}
