package model

import "errors"

// Per-series conditions. The batch runner turns these into skips.
var (
	ErrLoadFailure      = errors.New("series could not be loaded")
	ErrEmptyWindow      = errors.New("no observations inside the window")
	ErrInsufficientData = errors.New("not enough observations for metric")
)

// Caller contract violations. These abort the call before any series is processed.
var (
	ErrInvalidRange      = errors.New("start year is after end year")
	ErrInvalidConfidence = errors.New("confidence level must lie strictly between 0 and 1")
	ErrUnknownMetric     = errors.New("unknown metric")
)

// SkipReason classifies why an instrument produced no value.
type SkipReason string

const (
	SkipLoadFailure      SkipReason = "load_failure"
	SkipEmptyWindow      SkipReason = "empty_window"
	SkipInsufficientData SkipReason = "insufficient_data"
	SkipMetricFailed     SkipReason = "metric_failed"
)

// ReasonFor maps a per-series error to its skip reason.
func ReasonFor(err error) SkipReason {
	switch {
	case errors.Is(err, ErrLoadFailure):
		return SkipLoadFailure
	case errors.Is(err, ErrEmptyWindow):
		return SkipEmptyWindow
	case errors.Is(err, ErrInsufficientData):
		return SkipInsufficientData
	default:
		return SkipMetricFailed
	}
}

// Skip records an instrument left out of a result.
type Skip struct {
	Instrument string
	Reason     SkipReason
	Detail     string
}

// NewSkip builds a Skip from the error that caused it.
func NewSkip(instrument string, err error) Skip {
	return Skip{Instrument: instrument, Reason: ReasonFor(err), Detail: err.Error()}
}
