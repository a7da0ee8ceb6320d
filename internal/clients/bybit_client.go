package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const bybitSource = "bybit"

var hundred = decimal.NewFromInt(100)

// BybitQuotes quote source backed by Bybit public spot tickers.
type BybitQuotes struct {
	client     *bybit.Client
	quoteAsset string
}

// NewBybitClient creates a client without API keys, public market data only.
func NewBybitClient(baseURL string, timeout time.Duration) *bybit.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := bybit.NewClient().WithHTTPClient(&http.Client{Timeout: timeout})
	if baseURL != "" {
		client = client.WithBaseURL(baseURL)
	}
	return client
}

// NewBybitQuotes creates a quote source pricing symbols against quoteAsset, e.g. EUR.
func NewBybitQuotes(client *bybit.Client, quoteAsset string) *BybitQuotes {
	return &BybitQuotes{client: client, quoteAsset: quoteAsset}
}

// LatestQuotes fetches every spot ticker in one request and keeps the requested
// symbols that are listed against the quote asset. The bybit client takes no
// context, ctx is only checked before the call.
func (b *BybitQuotes) LatestQuotes(ctx context.Context, symbols []domain.Symbol) (map[domain.Symbol]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError(bybitSource, err)
	}

	result, err := b.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, transportError(bybitSource, err)
	}
	if result.Result.Spot == nil {
		return nil, upstreamError(bybitSource, "invalid response: missing spot tickers")
	}

	wanted := make(map[bybit.SymbolV5]domain.Symbol, len(symbols))
	for _, s := range symbols {
		wanted[bybit.SymbolV5(s.String()+b.quoteAsset)] = s
	}

	quotes := make(map[domain.Symbol]domain.Quote, len(symbols))
	for _, ticker := range result.Result.Spot.List {
		symbol, ok := wanted[ticker.Symbol]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(ticker.LastPrice)
		if err != nil {
			continue
		}
		// price24hPcnt is a fraction, 0.015 means 1.5%
		change, err := decimal.NewFromString(ticker.Price24HPcnt)
		if err != nil {
			change = decimal.Zero
		}
		quotes[symbol] = domain.Quote{Symbol: symbol, Price: price, Change24h: change.Mul(hundred)}
	}

	return quotes, nil
}
