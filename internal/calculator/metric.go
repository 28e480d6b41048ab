package calculator

import (
	"fmt"
	"sort"
	"strings"

	"CurrencyLens/internal/model"
)

// Metric names accepted by Lookup.
const (
	NameVaR             = "var"
	NameVolatility      = "volatility"
	NameDrawdown        = "mdd"
	NameInverseDrawdown = "mdd_inverse"
	NameDepreciation    = "depreciation"
)

// Metric binds one metric function to its display description.
type Metric struct {
	model.MetricInfo
	Compute  func(model.Series) (float64, error)
	validate func() error
}

// Validate checks the metric's parameters. Runners call it before touching any series.
func (m Metric) Validate() error {
	if m.Compute == nil {
		return fmt.Errorf("%w: %q has no compute function", model.ErrUnknownMetric, m.Name)
	}
	if m.validate != nil {
		return m.validate()
	}
	return nil
}

// WithHighlight returns a copy of m using policy h.
func (m Metric) WithHighlight(h model.Highlight) Metric {
	m.Highlight = h
	return m
}

// VaR is historical Value-at-Risk at the given confidence.
func VaR(confidence float64) Metric {
	return Metric{
		MetricInfo: model.MetricInfo{
			Name:      NameVaR,
			Label:     fmt.Sprintf("Value at Risk (VaR) at %.0f%% Confidence", confidence*100),
			Unit:      model.UnitPercent,
			Highlight: model.HighlightLowest,
		},
		Compute:  func(s model.Series) (float64, error) { return HistoricalVaR(s, confidence) },
		validate: func() error { return ValidateConfidence(confidence) },
	}
}

// AnnualVolatility is the annualized volatility of log returns.
func AnnualVolatility() Metric {
	return Metric{
		MetricInfo: model.MetricInfo{
			Name:      NameVolatility,
			Label:     "Annualized Volatility",
			Unit:      model.UnitRatio,
			Highlight: model.HighlightLargestMagnitude,
		},
		Compute: Volatility,
	}
}

// Drawdown is the maximum drawdown of the quoted price, or of its reciprocal
// when inverse is set.
func Drawdown(inverse bool) Metric {
	m := Metric{
		MetricInfo: model.MetricInfo{
			Name:      NameDrawdown,
			Label:     "Maximum Drawdown",
			Unit:      model.UnitPercent,
			Highlight: model.HighlightLowest,
		},
		Compute: func(s model.Series) (float64, error) { return MaxDrawdown(s, false) },
	}
	if inverse {
		m.Name = NameInverseDrawdown
		m.Label = "Maximum Drawdown (inverse quote)"
		m.Compute = func(s model.Series) (float64, error) { return MaxDrawdown(s, true) }
	}
	return m
}

// CurrencyDepreciation is the depreciation over the window.
func CurrencyDepreciation() Metric {
	return Metric{
		MetricInfo: model.MetricInfo{
			Name:      NameDepreciation,
			Label:     "Depreciation",
			Unit:      model.UnitPercent,
			Highlight: model.HighlightLowest,
		},
		Compute: Depreciation,
	}
}

// Params carries the tunable inputs of metrics.
type Params struct {
	Confidence float64 // VaR only; 0 means DefaultConfidence
}

// Lookup resolves a metric by name.
func Lookup(name string, p Params) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameVaR:
		c := p.Confidence
		if c == 0 {
			c = DefaultConfidence
		}
		return VaR(c), nil
	case NameVolatility:
		return AnnualVolatility(), nil
	case NameDrawdown:
		return Drawdown(false), nil
	case NameInverseDrawdown:
		return Drawdown(true), nil
	case NameDepreciation:
		return CurrencyDepreciation(), nil
	}
	return Metric{}, fmt.Errorf("%w %q (known: %s)", model.ErrUnknownMetric, name, strings.Join(Names(), ", "))
}

// Names lists every metric Lookup accepts.
func Names() []string {
	names := []string{NameVaR, NameVolatility, NameDrawdown, NameInverseDrawdown, NameDepreciation}
	sort.Strings(names)
	return names
}
