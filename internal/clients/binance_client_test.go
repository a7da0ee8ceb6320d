package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

func TestBinanceQuotesFiltersByQuoteAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol": "BTCEUR", "lastPrice": "50000.10", "priceChangePercent": "1.500"},
			{"symbol": "BTCUSDT", "lastPrice": "54000.00", "priceChangePercent": "1.400"},
			{"symbol": "ETHEUR", "lastPrice": "3000.00", "priceChangePercent": "-0.250"},
			{"symbol": "DOGEEUR", "lastPrice": "0.12", "priceChangePercent": "3"}
		]`))
	}))
	defer srv.Close()

	source := NewBinanceQuotes(NewBinanceClient(srv.URL), "EUR")
	quotes, err := source.LatestQuotes(context.Background(), []domain.Symbol{"BTC", "ETH", "SOL"})
	require.NoError(t, err)

	require.Len(t, quotes, 2)
	assert.True(t, quotes["BTC"].Price.Equal(decimal.RequireFromString("50000.10")))
	assert.True(t, quotes["ETH"].Change24h.Equal(decimal.RequireFromString("-0.25")))
	assert.NotContains(t, quotes, domain.Symbol("SOL"))
	assert.NotContains(t, quotes, domain.Symbol("DOGE"))
}
