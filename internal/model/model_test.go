package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_SortedLeavesOriginal(t *testing.T) {
	s := Series{Name: "X", Observations: []Observation{
		{Date: Day(2021, time.March, 3), Price: 3},
		{Date: Day(2021, time.March, 1), Price: 1},
		{Date: Day(2021, time.March, 2), Price: 2},
	}}
	sorted := s.Sorted()
	assert.Equal(t, []float64{1, 2, 3}, sorted.Prices())
	assert.Equal(t, []float64{3, 1, 2}, s.Prices())

	first, last, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, Day(2021, time.March, 1), first)
	assert.Equal(t, Day(2021, time.March, 3), last)
	assert.Equal(t, 2, s.SpanDays())
	assert.Equal(t, -1, Series{}.SpanDays())
}

func TestWindow(t *testing.T) {
	w := Window{Start: Day(2020, time.January, 1), End: Day(2020, time.December, 31)}
	assert.Equal(t, 366, w.Days())
	assert.True(t, w.Contains(time.Date(2020, time.December, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(Day(2021, time.January, 1)))
	assert.Equal(t, "2020-01-01..2020-12-31", w.String())
}

func TestExtremal(t *testing.T) {
	entries := []Entry{{"A", -2}, {"B", 5}, {"C", -7}, {"D", 5}}

	tests := []struct {
		h    Highlight
		want string
	}{
		{HighlightLowest, "C"},
		{HighlightHighest, "B"},
		{HighlightLargestMagnitude, "C"},
	}
	for _, tc := range tests {
		got, ok := Extremal(entries, tc.h)
		require.True(t, ok)
		assert.Equal(t, tc.want, got.Instrument, string(tc.h))
	}

	_, ok := Extremal(nil, HighlightLowest)
	assert.False(t, ok)
}

func TestReport_IsHighlightedMarksTies(t *testing.T) {
	r := &Report{
		Metric:  MetricInfo{Highlight: HighlightHighest},
		Entries: []Entry{{"A", -2}, {"B", 5}, {"C", -7}, {"D", 5}},
	}
	var got []string
	for _, e := range r.Entries {
		if r.IsHighlighted(e) {
			got = append(got, e.Instrument)
		}
	}
	assert.Equal(t, []string{"B", "D"}, got)

	r.Metric.Highlight = HighlightLargestMagnitude
	r.Entries = []Entry{{"A", 0.3}, {"B", -0.3}, {"C", 0.1}}
	assert.True(t, r.IsHighlighted(r.Entries[0]))
	assert.True(t, r.IsHighlighted(r.Entries[1]))
	assert.False(t, r.IsHighlighted(r.Entries[2]))

	assert.False(t, (&Report{}).IsHighlighted(Entry{"A", 1}))
}

func TestParseHighlight(t *testing.T) {
	h, err := ParseHighlight("largest_magnitude")
	require.NoError(t, err)
	assert.Equal(t, HighlightLargestMagnitude, h)
	_, err = ParseHighlight("brightest")
	assert.Error(t, err)
}

func TestReasonFor(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("CHF_USD: %w", err) }
	assert.Equal(t, SkipLoadFailure, ReasonFor(wrap(ErrLoadFailure)))
	assert.Equal(t, SkipEmptyWindow, ReasonFor(wrap(ErrEmptyWindow)))
	assert.Equal(t, SkipInsufficientData, ReasonFor(wrap(ErrInsufficientData)))
	assert.Equal(t, SkipMetricFailed, ReasonFor(errors.New("nan")))

	skip := NewSkip("CHF_USD", wrap(ErrEmptyWindow))
	assert.Equal(t, "CHF_USD", skip.Instrument)
	assert.Contains(t, skip.Detail, "no observations inside the window")
}
