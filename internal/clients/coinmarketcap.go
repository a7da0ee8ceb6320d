package clients

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const coinMarketCapSource = "coinmarketcap"

// CoinMarketCap fetches multi-symbol quote snapshots.
type CoinMarketCap struct {
	http    *resty.Client
	convert string
}

// NewCoinMarketCap creates a client for the CoinMarketCap pro API. convert is
// the fiat currency prices are quoted in, e.g. EUR.
func NewCoinMarketCap(baseURL, apiKey, convert string, timeout time.Duration) *CoinMarketCap {
	return &CoinMarketCap{
		http:    newRestyClient(baseURL, timeout).SetHeader("X-CMC_PRO_API_KEY", apiKey),
		convert: convert,
	}
}

type cmcResponse struct {
	Data   map[string][]cmcCoin `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

type cmcCoin struct {
	Quote map[string]cmcQuote `json:"quote"`
}

type cmcQuote struct {
	Price            decimal.NullDecimal `json:"price"`
	PercentChange24h decimal.NullDecimal `json:"percent_change_24h"`
}

// LatestQuotes returns the current quote of every requested symbol the API
// knows about, in one request. Symbols without a quote in the configured
// currency are left out.
func (c *CoinMarketCap) LatestQuotes(ctx context.Context, symbols []domain.Symbol) (map[domain.Symbol]domain.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":  domain.JoinSymbols(symbols),
			"convert": c.convert,
		}).
		Get("/cryptocurrency/quotes/latest")
	if err != nil {
		return nil, transportError(coinMarketCapSource, err)
	}

	var body cmcResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.IsError() {
		if decodeErr == nil && body.Status.ErrorMessage != "" {
			return nil, upstreamError(coinMarketCapSource, "status %d: %s", resp.StatusCode(), body.Status.ErrorMessage)
		}
		return nil, upstreamError(coinMarketCapSource, "status %d", resp.StatusCode())
	}
	if decodeErr != nil {
		return nil, upstreamError(coinMarketCapSource, "decode response: %s", decodeErr)
	}
	if body.Data == nil {
		return nil, upstreamError(coinMarketCapSource, "invalid response: missing data")
	}

	quotes := make(map[domain.Symbol]domain.Quote, len(body.Data))
	for raw, coins := range body.Data {
		if len(coins) == 0 {
			continue
		}
		quote, ok := coins[0].Quote[c.convert]
		if !ok || !quote.Price.Valid {
			continue
		}
		symbol := domain.NewSymbol(raw)
		quotes[symbol] = domain.Quote{
			Symbol:    symbol,
			Price:     quote.Price.Decimal,
			Change24h: quote.PercentChange24h.Decimal,
		}
	}

	return quotes, nil
}
