package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/config"
	"github.com/vadiminshakov/coinrates/internal/storage/pricehistory"
)

func newCMC(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		_, _ = w.Write([]byte(`{"data": {
			"BTC": [{"quote": {"EUR": {"price": 50000, "percent_change_24h": 1}}}],
			"ETH": [{"quote": {"EUR": {"price": 3000, "percent_change_24h": -1}}}]
		}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loadConfig(t *testing.T, body string) config.Config {
	t.Helper()
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	return cfg
}

func serve(t *testing.T, h http.Handler, target string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAppQuotesFeedStoreHistory(t *testing.T) {
	var calls int32
	cmc := newCMC(t, &calls)
	cfg := loadConfig(t, fmt.Sprintf(`
data_dir: %s
symbols: [BTC, ETH, SOL]
coinmarketcap:
  base_url: %s
historical_source: store
`, t.TempDir(), cmc.URL))

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, pricehistory.InitCreated, a.Status().State)
	h := a.Handler()

	quotes := serve(t, h, "/api/market-data")
	assert.Len(t, quotes["data"], 2)
	serve(t, h, "/api/market-data")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	hist := serve(t, h, "/api/historical-rates/daily?symbols=BTC,SOL")
	timestamps := hist["timestamps"].([]any)
	require.Len(t, timestamps, 1)

	rates := hist["rates"].(map[string]any)
	btc := rates["BTC"].(map[string]any)
	assert.Equal(t, float64(50000), btc[timestamps[0].(string)])
	sol := rates["SOL"].(map[string]any)
	assert.Nil(t, sol[timestamps[0].(string)])
	assert.Contains(t, sol, timestamps[0].(string))

	health := serve(t, h, "/healthz")
	assert.Equal(t, "created", health["store"])
	assert.NotNil(t, health["lastUpdate"])
}

func TestAppRedisCache(t *testing.T) {
	var calls int32
	cmc := newCMC(t, &calls)
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, fmt.Sprintf(`
data_dir: %s
coinmarketcap:
  base_url: %s
cache:
  backend: redis
  redis_addr: %s
`, t.TempDir(), cmc.URL, mr.Addr()))

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	serve(t, a.Handler(), "/api/market-data")
	serve(t, a.Handler(), "/api/market-data")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("quotes:latest_prices"))
}

func TestAppRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadConfig(t, fmt.Sprintf("data_dir: %s\ncache:\n  backend: redis\n  redis_addr: %s\n", t.TempDir(), addr))
	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestAppBybitQuoteSource(t *testing.T) {
	bybitSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode": 0, "retMsg": "OK", "result": {"category": "spot", "list": [
			{"symbol": "BTCUSDT", "lastPrice": "60000", "price24hPcnt": "0.01"}
		]}, "retExtInfo": {}, "time": 1760000000000}`))
	}))
	t.Cleanup(bybitSrv.Close)

	cfg := loadConfig(t, fmt.Sprintf(`
data_dir: %s
symbols: [BTC, ETH]
quote_source: bybit
bybit:
  base_url: %s
  quote_asset: USDT
`, t.TempDir(), bybitSrv.URL))

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	body := serve(t, a.Handler(), "/api/market-data")
	data := body["data"].([]any)
	require.Len(t, data, 1)
	btc := data[0].(map[string]any)
	assert.Equal(t, "BTC", btc["symbol"])
	assert.Equal(t, float64(60000), btc["price"])
	assert.Equal(t, float64(1), btc["change24h"])
}
