package clients

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const (
	exchangeRatesSource = "exchangerates"
	dateLayout          = "2006-01-02"
)

// DailyRates rates of every returned symbol on one date.
type DailyRates struct {
	Date  time.Time
	Rates map[domain.Symbol]decimal.Decimal
}

// ExchangeRates fetches historical time series for many symbols at once.
type ExchangeRates struct {
	http   *resty.Client
	apiKey string
	base   string
}

// NewExchangeRates creates a client for the exchangerates time-series API.
func NewExchangeRates(baseURL, apiKey, base string, timeout time.Duration) *ExchangeRates {
	return &ExchangeRates{
		http:   newRestyClient(baseURL, timeout),
		apiKey: apiKey,
		base:   base,
	}
}

type timeSeriesResponse struct {
	Success bool                              `json:"success"`
	Rates   map[string]map[string]json.Number `json:"rates"`
	Error   *timeSeriesError                  `json:"error"`
}

type timeSeriesError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

// TimeSeries returns one entry per date between start and end, sorted by date.
// A response with success=false fails with the upstream's own message when present.
func (c *ExchangeRates) TimeSeries(ctx context.Context, start, end time.Time, symbols []domain.Symbol) ([]DailyRates, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_key": c.apiKey,
			"start_date": start.UTC().Format(dateLayout),
			"end_date":   end.UTC().Format(dateLayout),
			"base":       c.base,
			"symbols":    domain.JoinSymbols(symbols),
		}).
		Get("/timeseries")
	if err != nil {
		return nil, transportError(exchangeRatesSource, err)
	}

	var body timeSeriesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, upstreamError(exchangeRatesSource, "status %d, decode response: %s", resp.StatusCode(), err)
	}
	if !body.Success {
		if body.Error != nil && body.Error.Info != "" {
			return nil, upstreamError(exchangeRatesSource, "%s", body.Error.Info)
		}
		return nil, upstreamError(exchangeRatesSource, "failed to fetch historical rates")
	}

	series := make([]DailyRates, 0, len(body.Rates))
	for rawDate, rates := range body.Rates {
		date, err := time.ParseInLocation(dateLayout, rawDate, time.UTC)
		if err != nil {
			return nil, upstreamError(exchangeRatesSource, "bad date %q", rawDate)
		}

		day := DailyRates{Date: date, Rates: make(map[domain.Symbol]decimal.Decimal, len(rates))}
		for rawSymbol, value := range rates {
			rate, err := decimal.NewFromString(value.String())
			if err != nil {
				continue
			}
			day.Rates[domain.NewSymbol(rawSymbol)] = rate
		}
		series = append(series, day)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	return series, nil
}
