package calculator

import (
	"fmt"
	"math"

	"CurrencyLens/internal/model"
)

// AnnualizationFactor scales the per-observation standard deviation to a year.
// Every observation counts as one monthly period.
var AnnualizationFactor = math.Sqrt(12)

// Volatility returns the annualized sample standard deviation of log returns.
// Requires at least 3 observations.
func Volatility(s model.Series) (float64, error) {
	prices, err := ascendingPrices(s, 3)
	if err != nil {
		return 0, err
	}
	std, err := SampleStdDev(LogReturns(prices))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.Name, err)
	}
	return std * AnnualizationFactor, nil
}
