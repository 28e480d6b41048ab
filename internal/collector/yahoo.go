package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"CurrencyLens/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	Range   string            // Yahoo range parameter, "max" by default
	Tickers map[string]string // maps instrument name to Yahoo ticker, e.g. "CHF_AUD" -> "CHFAUD=X"
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(tickers map[string]string, proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: yahooBaseURL,
		Range:   "max",
		Tickers: tickers,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// Instruments returns the configured instrument names, sorted.
func (f *YahooFetcher) Instruments(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.Tickers))
	for name := range f.Tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries downloads daily closes for one instrument. Null closes
// (holidays) are skipped; when Yahoo reports two points on the same day the
// later one wins.
func (f *YahooFetcher) FetchSeries(ctx context.Context, instrument string) (model.Series, error) {
	ticker, ok := f.Tickers[instrument]
	if !ok {
		return model.Series{}, fmt.Errorf("no yahoo ticker configured for %q", instrument)
	}
	rng := f.Range
	if rng == "" {
		rng = "max"
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(ticker), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Series{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.Series{}, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Series{}, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Series{}, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.Series{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return model.Series{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.Series{}, fmt.Errorf("yahoo: no data returned for %s", ticker)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	s := model.Series{Name: instrument}
	index := make(map[time.Time]int)

	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		day := model.Truncate(time.Unix(ts, 0).UTC())
		if j, dup := index[day]; dup {
			s.Observations[j].Price = *closes[i]
			continue
		}
		index[day] = len(s.Observations)
		s.Observations = append(s.Observations, model.Observation{Date: day, Price: *closes[i]})
	}
	return s, nil
}
