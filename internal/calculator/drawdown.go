package calculator

import (
	"CurrencyLens/internal/model"
)

// Drawdowns returns the percentage drawdown from the running peak at every
// observation, in ascending date order. With invert, each price p is replaced
// by 1/p first.
func Drawdowns(s model.Series, invert bool) ([]float64, error) {
	prices, err := ascendingPrices(s, 1)
	if err != nil {
		return nil, err
	}
	if invert {
		for i, p := range prices {
			prices[i] = 1 / p
		}
	}

	out := make([]float64, len(prices))
	peak := prices[0]
	for i, v := range prices {
		if v > peak {
			peak = v
		}
		out[i] = (v - peak) / peak * 100
	}
	return out, nil
}

// MaxDrawdown returns the most negative drawdown of the series. It is 0 for a
// single observation or non-decreasing prices, and never positive.
func MaxDrawdown(s model.Series, invert bool) (float64, error) {
	dd, err := Drawdowns(s, invert)
	if err != nil {
		return 0, err
	}
	worst := 0.0
	for _, d := range dd {
		if d < worst {
			worst = d
		}
	}
	return worst, nil
}
