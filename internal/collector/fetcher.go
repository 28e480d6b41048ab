package collector

import (
	"context"

	"CurrencyLens/internal/model"
)

// Fetcher defines the interface for obtaining raw price series.
type Fetcher interface {
	// Instruments lists the available instrument names in a stable order.
	Instruments(ctx context.Context) ([]string, error)
	// FetchSeries returns every observation known for one instrument.
	FetchSeries(ctx context.Context, instrument string) (model.Series, error)
	Name() string
}
