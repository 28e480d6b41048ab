package model

import (
	"fmt"
	"math"
)

// Status tells the presentation layer whether there is anything to show.
type Status string

const (
	StatusOK              Status = "ok"
	StatusNoDataAvailable Status = "no_data_available"
	StatusNoValidResults  Status = "no_valid_results"
)

// Unit of a metric value.
type Unit string

const (
	UnitPercent Unit = "percent"
	UnitRatio   Unit = "ratio"
)

// Highlight selects the extremal entry a chart emphasises.
type Highlight string

const (
	HighlightLowest           Highlight = "lowest"
	HighlightHighest          Highlight = "highest"
	HighlightLargestMagnitude Highlight = "largest_magnitude"
)

// ParseHighlight validates a highlight policy name.
func ParseHighlight(s string) (Highlight, error) {
	switch h := Highlight(s); h {
	case HighlightLowest, HighlightHighest, HighlightLargestMagnitude:
		return h, nil
	}
	return "", fmt.Errorf("unknown highlight policy %q", s)
}

// MetricInfo describes a metric for display.
type MetricInfo struct {
	Name      string
	Label     string
	Unit      Unit
	Highlight Highlight
}

// Entry is one instrument's metric value.
type Entry struct {
	Instrument string
	Value      float64
}

// Report is the outcome of one batch run.
type Report struct {
	Metric  MetricInfo
	Window  Window
	Entries []Entry // discovery order
	Skipped []Skip
	Status  Status
}

// Values returns the entries as a map keyed by instrument.
func (r *Report) Values() map[string]float64 {
	m := make(map[string]float64, len(r.Entries))
	for _, e := range r.Entries {
		m[e.Instrument] = e.Value
	}
	return m
}

// Empty reports whether there is nothing to show.
func (r *Report) Empty() bool { return len(r.Entries) == 0 }

// Extremal returns the entry selected by the metric's highlight policy.
// Ties keep the earliest entry.
func (r *Report) Extremal() (Entry, bool) {
	return Extremal(r.Entries, r.Metric.Highlight)
}

// Extremal picks the entry selected by h. Ties keep the earliest entry.
func Extremal(entries []Entry, h Highlight) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		switch h {
		case HighlightHighest:
			if e.Value > best.Value {
				best = e
			}
		case HighlightLargestMagnitude:
			if math.Abs(e.Value) > math.Abs(best.Value) {
				best = e
			}
		default:
			if e.Value < best.Value {
				best = e
			}
		}
	}
	return best, true
}

// IsHighlighted reports whether e ties with the extremal value under the
// report's highlight policy. Every tied entry is highlighted.
func (r *Report) IsHighlighted(e Entry) bool {
	top, ok := r.Extremal()
	if !ok {
		return false
	}
	if r.Metric.Highlight == HighlightLargestMagnitude {
		return math.Abs(e.Value) == math.Abs(top.Value)
	}
	return e.Value == top.Value
}

// Batch is what the loader hands to the core: every series that loaded, in
// discovery order, and the instruments that failed.
type Batch struct {
	Series   []Series
	Failures []Skip
}

// Alignment is the output of the alignment engine.
type Alignment struct {
	Reference string
	Window    Window
	Series    []Series // input order
	Dropped   []string
	Failures  []Skip
	Status    Status
}
