package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CurrencyLens/internal/model"
)

const investingCSV = `"Date","Price","Open","High","Low","Vol.","Change %"
"01/03/2024","1,234.50","1,230.00","1,240.00","1,229.00","","0.10%"
"01/02/2024","1,233.25","1,231.00","1,236.00","1,228.00","","-0.05%"

"12/29/2023","1,233.90","1,233.00","1,235.00","1,230.00","","0.01%"
`

func TestParseCSV_Investing(t *testing.T) {
	s, err := ParseCSV(strings.NewReader(investingCSV), "CHF_JPY", nil)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "CHF_JPY", s.Name)
	assert.Equal(t, model.Day(2024, time.January, 3), s.Observations[0].Date)
	assert.Equal(t, []float64{1234.5, 1233.25, 1233.9}, s.Prices())
}

func TestParseCSV_DayFirstAndBOM(t *testing.T) {
	in := "\ufeffDate,Price\n31.12.2020,0.9012\n30.12.2020,0.9\n"
	s, err := ParseCSV(strings.NewReader(in), "CHF_EUR", []string{"02.01.2006"})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, model.Day(2020, time.December, 31), s.Observations[0].Date)
}

func TestParseCSV_DayFirstSlashes(t *testing.T) {
	in := "Date,Price\n31/12/2020,0.9012\n03/04/2020,0.95\n"
	s, err := ParseCSV(strings.NewReader(in), "CHF_EUR", DayFirstDateLayouts)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, model.Day(2020, time.December, 31), s.Observations[0].Date)
	assert.Equal(t, model.Day(2020, time.April, 3), s.Observations[1].Date)

	_, err = ParseCSV(strings.NewReader(in), "CHF_EUR", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: invalid date")
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"missing price column", "Date,Open\n2020-01-01,1\n", "lacks Date and Price"},
		{"bad date", "Date,Price\n2020-13-45,1\n", "line 2: invalid date"},
		{"bad price", "Date,Price\n2020-01-01,abc\n", "line 2: invalid price"},
		{"zero price", "Date,Price\n2020-01-01,0\n", "line 2: non-positive price"},
		{"negative price", "Date,Price\n2020-01-01,1\n2020-01-02,-1\n", "line 3: non-positive price"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tc.in), "X", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	in := model.Series{Name: "CHF_CAD", Observations: []model.Observation{
		{Date: model.Day(2021, time.March, 2), Price: 1.4321},
		{Date: model.Day(2021, time.March, 1), Price: 1.43},
	}}
	dir := t.TempDir()
	path, err := WriteCSVFile(dir, in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "CHF_CAD.csv"), path)

	f := NewCSVFetcher(dir, nil)
	names, err := f.Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHF_CAD"}, names)

	out, err := f.FetchSeries(context.Background(), "CHF_CAD")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCSVFetcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("Date,Price\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.CSV"), []byte("Date,Price\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	names, err := NewCSVFetcher(dir, nil).Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestCollector_LoadAllIsolatesFailures(t *testing.T) {
	end := model.Day(2024, time.June, 28)
	dup := GenerateMockSeries("DUP", 1, 0, end, 2)
	dup.Observations[1].Date = dup.Observations[0].Date

	f := &MockFetcher{
		Series: []model.Series{
			GenerateMockSeries("CHF_USD", 1.1, 0.001, end, 30),
			dup,
			GenerateMockSeries("CHF_EUR", 1.0, 0.001, end, 30),
		},
		Errors: map[string]error{"BROKEN": errors.New("disk on fire")},
	}
	c := NewCollector(f, zerolog.Nop())

	batch, err := c.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Series, 2)
	assert.Equal(t, "CHF_USD", batch.Series[0].Name)
	assert.Equal(t, "CHF_EUR", batch.Series[1].Name)

	require.Len(t, batch.Failures, 2)
	for _, skip := range batch.Failures {
		assert.Equal(t, model.SkipLoadFailure, skip.Reason)
	}
	assert.Equal(t, "DUP", batch.Failures[0].Instrument)
	assert.Equal(t, "BROKEN", batch.Failures[1].Instrument)

	_, err = c.LoadOne(context.Background(), "BROKEN")
	require.ErrorIs(t, err, model.ErrLoadFailure)
}

func TestCollector_ListFailure(t *testing.T) {
	c := NewCollector(NewCSVFetcher(filepath.Join(t.TempDir(), "missing"), nil), zerolog.Nop())
	_, err := c.LoadAll(context.Background())
	require.Error(t, err)
}

func TestYahooFetcher_FetchSeries(t *testing.T) {
	day := func(y int, m time.Month, d, hour int) int64 {
		return time.Date(y, m, d, hour, 0, 0, 0, time.UTC).Unix()
	}
	body := fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%d,%d,%d,%d],
		"indicators":{"quote":[{"close":[1.61,null,1.62,1.63]}]}}],"error":null}}`,
		day(2024, 1, 2, 0), day(2024, 1, 3, 0), day(2024, 1, 4, 0), day(2024, 1, 4, 16))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/CHFAUD=X", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "max", r.URL.Query().Get("range"))
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewYahooFetcher(map[string]string{"CHF_AUD": "CHFAUD=X"}, "")
	f.BaseURL = srv.URL

	names, err := f.Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHF_AUD"}, names)

	s, err := f.FetchSeries(context.Background(), "CHF_AUD")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.61, 1.63}, s.Prices())
	assert.Equal(t, model.Day(2024, time.January, 4), s.Observations[1].Date)
}

func TestYahooFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "BAD") {
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewYahooFetcher(map[string]string{"A": "BAD", "B": "GOOD"}, "")
	f.BaseURL = srv.URL

	_, err := f.FetchSeries(context.Background(), "A")
	require.ErrorContains(t, err, "No data found")
	_, err = f.FetchSeries(context.Background(), "B")
	require.ErrorContains(t, err, "status 500")
	_, err = f.FetchSeries(context.Background(), "C")
	require.ErrorContains(t, err, "no yahoo ticker")
}
