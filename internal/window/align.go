// Package window restricts series to analysis windows: calendar-year ranges
// chosen by the caller, or the common window derived by Align.
package window

import (
	"errors"

	"CurrencyLens/internal/model"
)

// Reference picks the non-empty series with the shortest span in days.
// Equal spans are resolved by the lexicographically smallest instrument name,
// so the choice does not depend on discovery order.
func Reference(series []model.Series) (model.Series, bool) {
	var (
		ref   model.Series
		found bool
	)
	for _, s := range series {
		span := s.SpanDays()
		if span < 0 {
			continue
		}
		refSpan := ref.SpanDays()
		if !found || span < refSpan || (span == refSpan && s.Name < ref.Name) {
			ref, found = s, true
		}
	}
	return ref, found
}

// Align truncates every series to the bounding window of the reference series.
// Series left without observations are listed in Dropped. An input with no
// usable series yields StatusNoDataAvailable rather than an error.
func Align(series []model.Series) (*model.Alignment, error) {
	ref, ok := Reference(series)
	if !ok {
		return &model.Alignment{Status: model.StatusNoDataAvailable}, nil
	}
	first, last, _ := ref.Bounds()
	out := &model.Alignment{
		Reference: ref.Name,
		Window:    model.Window{Start: first, End: last},
		Status:    model.StatusOK,
	}

	for _, s := range series {
		cut, err := Filter(s, out.Window)
		if errors.Is(err, model.ErrEmptyWindow) {
			out.Dropped = append(out.Dropped, s.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Series = append(out.Series, cut)
	}
	return out, nil
}
