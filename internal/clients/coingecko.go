package clients

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const coinGeckoSource = "coingecko"

// DefaultCoinGeckoIDs maps supported tickers to CoinGecko coin ids.
var DefaultCoinGeckoIDs = map[domain.Symbol]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDC": "usd-coin",
	"SHIB": "shiba-inu",
	"LCX":  "lcx",
	"DOGE": "dogecoin",
	"LINK": "chainlink",
	"SOL":  "solana",
}

// CoinGecko fetches per-symbol market chart series.
type CoinGecko struct {
	http       *resty.Client
	ids        map[domain.Symbol]string
	vsCurrency string
}

// NewCoinGecko creates a client for the CoinGecko v3 API.
func NewCoinGecko(baseURL, apiKey, vsCurrency string, ids map[domain.Symbol]string, timeout time.Duration) *CoinGecko {
	if ids == nil {
		ids = DefaultCoinGeckoIDs
	}
	return &CoinGecko{
		http:       newRestyClient(baseURL, timeout).SetHeader("X-CG-Demo-API-Key", apiKey),
		ids:        ids,
		vsCurrency: vsCurrency,
	}
}

// Supports reports whether symbol has a CoinGecko id.
func (c *CoinGecko) Supports(symbol domain.Symbol) bool {
	_, ok := c.ids[symbol]
	return ok
}

type marketChartResponse struct {
	Prices [][]json.Number `json:"prices"`
	Error  string          `json:"error"`
}

// MarketChart returns the price series of symbol over the last days days.
// Malformed pairs in the response are skipped.
func (c *CoinGecko) MarketChart(ctx context.Context, symbol domain.Symbol, days int) ([]domain.PricePoint, error) {
	id, ok := c.ids[symbol]
	if !ok {
		return nil, upstreamError(coinGeckoSource, "no coin id for %s", symbol)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParams(map[string]string{
			"vs_currency": c.vsCurrency,
			"days":        strconv.Itoa(days),
			"precision":   "full",
		}).
		Get("/coins/{id}/market_chart")
	if err != nil {
		return nil, transportError(coinGeckoSource, err)
	}
	if resp.IsError() {
		return nil, upstreamError(coinGeckoSource, "status %d for %s: %s", resp.StatusCode(), symbol, resp.String())
	}

	var body marketChartResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, upstreamError(coinGeckoSource, "decode %s response: %s", symbol, err)
	}
	if body.Error != "" {
		return nil, upstreamError(coinGeckoSource, "%s: %s", symbol, body.Error)
	}

	points := make([]domain.PricePoint, 0, len(body.Prices))
	for _, pair := range body.Prices {
		if len(pair) < 2 {
			continue
		}
		ms, err := decimal.NewFromString(pair[0].String())
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			continue
		}
		points = append(points, domain.NewPricePoint(time.UnixMilli(ms.IntPart()), price))
	}

	return points, nil
}
