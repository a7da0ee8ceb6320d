package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

func TestCoinGeckoMarketChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		assert.Equal(t, "full", r.URL.Query().Get("precision"))
		assert.Equal(t, "demo", r.Header.Get("X-CG-Demo-API-Key"))
		_, _ = w.Write([]byte(`{"prices": [[1700000000000, 35000.12], [1700003600000, 35100.5], [1700007200000], [1700010800000, null]]}`))
	}))
	defer srv.Close()

	client := NewCoinGecko(srv.URL, "demo", "eur", nil, time.Second)
	points, err := client.MarketChart(context.Background(), "BTC", 7)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), points[0].Timestamp)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("35000.12")))
	assert.Equal(t, time.UnixMilli(1700003600000).UTC(), points[1].Timestamp)
}

func TestCoinGeckoSupports(t *testing.T) {
	client := NewCoinGecko("http://localhost", "", "eur", map[domain.Symbol]string{"BTC": "bitcoin"}, time.Second)
	assert.True(t, client.Supports("BTC"))
	assert.False(t, client.Supports("ETH"))

	_, err := client.MarketChart(context.Background(), "ETH", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestCoinGeckoErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status": {"error_code": 429, "error_message": "rate limited"}}`))
	}))
	defer srv.Close()

	client := NewCoinGecko(srv.URL, "", "eur", nil, time.Second)
	_, err := client.MarketChart(context.Background(), "ETH", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Contains(t, err.Error(), "429")
}
