package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CurrencyLens/internal/model"
)

// DefaultDateLayouts are tried in order when parsing the Date column:
// ISO (re-exported files), day-first with dots, investing.com's US export
// and its long form.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"Jan 02, 2006",
}

// DayFirstDateLayouts replace DefaultDateLayouts for sources that write
// slash dates day first, e.g. 31/12/2020.
var DayFirstDateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"02 Jan 2006",
}

// CSVFetcher reads one CSV file per instrument from a directory. The
// instrument name is the file name without extension, e.g.
// "CHF_AUD Historical Data.csv" -> "CHF_AUD Historical Data".
type CSVFetcher struct {
	Dir     string
	Layouts []string
}

// NewCSVFetcher creates a fetcher over dir. Nil layouts use DefaultDateLayouts.
func NewCSVFetcher(dir string, layouts []string) *CSVFetcher {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &CSVFetcher{Dir: dir, Layouts: layouts}
}

func (f *CSVFetcher) Name() string { return "csv" }

// Instruments lists *.csv files in the directory, sorted by name.
func (f *CSVFetcher) Instruments(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %q: %w", f.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}

func (f *CSVFetcher) FetchSeries(_ context.Context, instrument string) (model.Series, error) {
	path := filepath.Join(f.Dir, instrument+".csv")
	r, err := os.Open(path)
	if err != nil {
		return model.Series{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer r.Close()
	return ParseCSV(r, instrument, f.Layouts)
}

// ParseCSV reads a price history with a header row containing "Date" and
// "Price" columns (other columns are ignored):
//
//	"Date","Price","Open","High","Low","Vol.","Change %"
//	"12/31/2024","0.9012","0.9051","0.9077","0.9005","","-0.43%"
//
// Prices may carry thousands separators. Rows keep their file order.
func ParseCSV(r io.Reader, name string, layouts []string) (model.Series, error) {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.Series{Name: name}, nil
	}
	if err != nil {
		return model.Series{}, fmt.Errorf("%s: read header: %w", name, err)
	}
	dateCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.Trim(strings.TrimPrefix(h, "\ufeff"), " \"")) {
		case "date":
			dateCol = i
		case "price", "close":
			if priceCol < 0 {
				priceCol = i
			}
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return model.Series{}, fmt.Errorf("%s: header %q lacks Date and Price columns", name, header)
	}

	s := model.Series{Name: name}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Series{}, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(row) {
			continue
		}
		if len(row) <= dateCol || len(row) <= priceCol {
			return model.Series{}, fmt.Errorf("%s: line %d: got %d fields", name, line, len(row))
		}
		on, err := parseDate(row[dateCol], layouts)
		if err != nil {
			return model.Series{}, fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		price, err := parsePrice(row[priceCol])
		if err != nil {
			return model.Series{}, fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		s.Observations = append(s.Observations, model.Observation{Date: on, Price: price})
	}
	return s, nil
}

// WriteCSV writes the series as "Date,Price" rows with ISO dates, in the
// series' own order.
func WriteCSV(w io.Writer, s model.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Price"}); err != nil {
		return err
	}
	for _, o := range s.Observations {
		rec := []string{o.Date.Format(model.DateFormat), strconv.FormatFloat(o.Price, 'f', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes s to dir/<name>.csv, creating dir if needed.
func WriteCSVFile(dir string, s model.Series) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	path := filepath.Join(dir, s.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, f.Close()
}

func parseDate(raw string, layouts []string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func parsePrice(raw string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return d.InexactFloat64(), nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
