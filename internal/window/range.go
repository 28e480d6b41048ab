package window

import (
	"fmt"
	"time"

	"CurrencyLens/internal/model"
)

// Years returns the window [Jan 1 startYear, Dec 31 endYear].
func Years(startYear, endYear int) (model.Window, error) {
	if startYear > endYear {
		return model.Window{}, fmt.Errorf("%w: %d > %d", model.ErrInvalidRange, startYear, endYear)
	}
	return model.Window{
		Start: model.Day(startYear, time.January, 1),
		End:   model.Day(endYear, time.December, 31),
	}, nil
}

// Filter keeps the observations inside w, preserving their relative order.
// An empty result is reported as model.ErrEmptyWindow.
func Filter(s model.Series, w model.Window) (model.Series, error) {
	kept := make([]model.Observation, 0, len(s.Observations))
	for _, o := range s.Observations {
		if w.Contains(o.Date) {
			kept = append(kept, o)
		}
	}
	if len(kept) == 0 {
		return model.Series{Name: s.Name}, fmt.Errorf("%s %s: %w", s.Name, w, model.ErrEmptyWindow)
	}
	return model.Series{Name: s.Name, Observations: kept}, nil
}

// FilterYears is Filter over Years(startYear, endYear).
func FilterYears(s model.Series, startYear, endYear int) (model.Series, error) {
	w, err := Years(startYear, endYear)
	if err != nil {
		return model.Series{}, err
	}
	return Filter(s, w)
}
