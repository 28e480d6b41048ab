package calculator

import (
	"CurrencyLens/internal/model"
)

// Depreciation returns (start - end) / start * 100 where start is the price at
// the oldest date and end the price at the most recent date. Endpoints are
// picked by date, not by position. Positive means the quoted currency lost
// value. A single observation yields 0.
func Depreciation(s model.Series) (float64, error) {
	prices, err := ascendingPrices(s, 1)
	if err != nil {
		return 0, err
	}
	start, end := prices[0], prices[len(prices)-1]
	return (start - end) / start * 100, nil
}
