package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"CurrencyLens/internal/model"
)

// SimpleReturns computes p[i]/p[i-1] - 1 over ascending prices.
// The undefined first return is omitted, so the result has len(prices)-1 items.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// LogReturns computes ln(p[i]/p[i-1]) over ascending prices.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return out
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between order statistics: rank = p/100*(n-1).
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile of empty sample: %w", model.ErrInsufficientData)
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v out of [0, 100]", p)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), nil
}

// SampleStdDev returns the Bessel-corrected (n-1) standard deviation.
// Uses Welford's update to stay stable for values close to each other.
func SampleStdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("sample std-dev needs 2 values, got %d: %w", len(values), model.ErrInsufficientData)
	}
	var mean, m2 float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	return math.Sqrt(m2 / float64(len(values)-1)), nil
}

var errNonPositive = errors.New("non-positive price")

// ascendingPrices sorts the series by date and checks the minimum length.
func ascendingPrices(s model.Series, min int) ([]float64, error) {
	if s.Len() < min {
		return nil, fmt.Errorf("%s: need %d observations, have %d: %w", s.Name, min, s.Len(), model.ErrInsufficientData)
	}
	prices := s.Sorted().Prices()
	for i, p := range prices {
		if !(p > 0) {
			return nil, fmt.Errorf("%s: observation %d: %w %v", s.Name, i, errNonPositive, p)
		}
	}
	return prices, nil
}
