package calculator

import (
	"fmt"

	"CurrencyLens/internal/model"
)

// DefaultConfidence is the VaR confidence level used when none is given.
const DefaultConfidence = 0.95

// ValidateConfidence checks that c lies strictly between 0 and 1.
func ValidateConfidence(c float64) error {
	if !(c > 0 && c < 1) {
		return fmt.Errorf("%w: got %v", model.ErrInvalidConfidence, c)
	}
	return nil
}

// HistoricalVaR returns the (1-confidence) percentile of simple returns as a
// signed percentage. Requires at least 2 observations.
func HistoricalVaR(s model.Series, confidence float64) (float64, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return 0, err
	}
	prices, err := ascendingPrices(s, 2)
	if err != nil {
		return 0, err
	}
	q, err := Percentile(SimpleReturns(prices), (1-confidence)*100)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.Name, err)
	}
	return q * 100, nil
}
