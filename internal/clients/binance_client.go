package clients

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const binanceSource = "binance"

// BinanceQuotes quote source backed by Binance public 24h ticker statistics.
type BinanceQuotes struct {
	client     *binance.Client
	quoteAsset string
}

// NewBinanceClient creates a client without API keys, public market data only.
func NewBinanceClient(baseURL string) *binance.Client {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return client
}

// NewBinanceQuotes creates a quote source pricing symbols against quoteAsset, e.g. EUR.
func NewBinanceQuotes(client *binance.Client, quoteAsset string) *BinanceQuotes {
	return &BinanceQuotes{client: client, quoteAsset: quoteAsset}
}

// LatestQuotes fetches all 24h tickers in one request and keeps the requested
// symbols that are listed against the quote asset.
func (b *BinanceQuotes) LatestQuotes(ctx context.Context, symbols []domain.Symbol) (map[domain.Symbol]domain.Quote, error) {
	stats, err := b.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, transportError(binanceSource, err)
	}

	wanted := make(map[string]domain.Symbol, len(symbols))
	for _, s := range symbols {
		wanted[s.String()+b.quoteAsset] = s
	}

	quotes := make(map[domain.Symbol]domain.Quote, len(symbols))
	for _, st := range stats {
		if st == nil {
			continue
		}
		symbol, ok := wanted[st.Symbol]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(st.LastPrice)
		if err != nil {
			continue
		}
		change, err := decimal.NewFromString(st.PriceChangePercent)
		if err != nil {
			change = decimal.Zero
		}
		quotes[symbol] = domain.Quote{Symbol: symbol, Price: price, Change24h: change}
	}

	return quotes, nil
}
