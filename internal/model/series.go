package model

import (
	"sort"
	"time"
)

// Observation is a single dated price.
type Observation struct {
	Date  time.Time
	Price float64
}

// Day returns the UTC midnight of the given calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate normalizes t to the UTC midnight of its calendar day.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Day(y, m, d)
}

// Series is a named sequence of observations. The order is whatever the
// loader produced; callers that depend on chronology use Sorted.
type Series struct {
	Name         string
	Observations []Observation
}

// NewSeries copies obs into a new series.
func NewSeries(name string, obs []Observation) Series {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	return Series{Name: name, Observations: cp}
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.Observations) == 0 }

// Sorted returns an ascending-by-date copy of the series.
func (s Series) Sorted() Series {
	out := NewSeries(s.Name, s.Observations)
	sort.SliceStable(out.Observations, func(i, j int) bool {
		return out.Observations[i].Date.Before(out.Observations[j].Date)
	})
	return out
}

// Prices returns the prices in the series' current order.
func (s Series) Prices() []float64 {
	prices := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		prices[i] = o.Price
	}
	return prices
}

// Bounds returns the earliest and latest dates regardless of order.
// ok is false for an empty series.
func (s Series) Bounds() (first, last time.Time, ok bool) {
	if len(s.Observations) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = s.Observations[0].Date, s.Observations[0].Date
	for _, o := range s.Observations[1:] {
		if o.Date.Before(first) {
			first = o.Date
		}
		if o.Date.After(last) {
			last = o.Date
		}
	}
	return first, last, true
}

// SpanDays returns max(date) - min(date) in whole days, or -1 when empty.
func (s Series) SpanDays() int {
	first, last, ok := s.Bounds()
	if !ok {
		return -1
	}
	return daysBetween(first, last)
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
// Only the calendar day of t is compared.
func (w Window) Contains(t time.Time) bool {
	d := Truncate(t)
	return !d.Before(Truncate(w.Start)) && !d.After(Truncate(w.End))
}

// Days returns the number of calendar days covered, both ends included.
func (w Window) Days() int {
	return daysBetween(w.Start, w.End) + 1
}

func (w Window) String() string {
	return w.Start.Format(DateFormat) + ".." + w.End.Format(DateFormat)
}

// DateFormat is the ISO layout used for printing and writing dates.
const DateFormat = "2006-01-02"

func daysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}
