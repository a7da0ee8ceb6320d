package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
	"github.com/vadiminshakov/coinrates/internal/storage/pricehistory"
)

var (
	supported = []domain.Symbol{"BTC", "ETH", "SOL"}
	ts0       = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	ts1       = ts0.Add(time.Hour)
)

type mockQuotes struct {
	snapshot  domain.QuoteSnapshot
	err       error
	refreshed int
}

func (m *mockQuotes) Latest(context.Context) (domain.QuoteSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockQuotes) Refresh(context.Context) (domain.QuoteSnapshot, error) {
	m.refreshed++
	return m.snapshot, m.err
}

type mockHistorical struct {
	symbols   []domain.Symbol
	refreshed bool
	err       error
}

func (m *mockHistorical) Get(_ context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	m.symbols = symbols
	if m.err != nil {
		return nil, m.err
	}
	b := domain.NewResultBuilder(tf)
	b.Add("BTC", ts1, decimal.NewFromInt(101))
	b.Add("BTC", ts0, decimal.NewFromInt(100))
	b.AddTimestamp(ts1)
	b.Fill([]domain.Symbol{"BTC", "ETH"})
	return b.Build(), nil
}

func (m *mockHistorical) Refresh(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	m.refreshed = true
	return m.Get(ctx, tf, symbols)
}

type mockJournal struct {
	snapshots []domain.QuoteSnapshot
}

func (m *mockJournal) SnapshotsAfter(index uint64) ([]domain.QuoteSnapshotRecord, error) {
	var out []domain.QuoteSnapshotRecord
	for i, s := range m.snapshots {
		idx := uint64(i + 1)
		if idx > index {
			out = append(out, domain.QuoteSnapshotRecord{Index: idx, Snapshot: s})
		}
	}
	return out, nil
}

type fixedStatus struct{ ts time.Time }

func (f fixedStatus) LastUpdate() (time.Time, bool) { return f.ts, !f.ts.IsZero() }

func newTestServer(quotes QuoteService, opts ...Option) http.Handler {
	return NewServer(":0", quotes, supported, zap.NewNop(), opts...).Handler()
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestMarketData(t *testing.T) {
	quotes := &mockQuotes{snapshot: domain.QuoteSnapshot{
		Timestamp: ts0,
		Data:      []domain.Quote{{Symbol: "BTC", Price: decimal.RequireFromString("50000.5"), Change24h: decimal.NewFromInt(2)}},
	}}
	h := newTestServer(quotes)

	rec, _ := get(t, h, "/api/market-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"timestamp": "2026-10-16T10:00:00.000Z",
		"data": [{"symbol": "BTC", "price": 50000.5, "change24h": 2}]
	}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec, _ = get(t, h, "/api/market-data/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, quotes.refreshed)
}

func TestMarketDataFailureIsGeneric(t *testing.T) {
	quotes := &mockQuotes{err: errors.Wrap(domain.ErrUpstream, "coinmarketcap: This API Key is invalid.")}

	rec, body := get(t, newTestServer(quotes), "/api/market-data")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, msgQuotesFailed, body["error"])
	assert.NotContains(t, rec.Body.String(), "API Key")
}

func TestHistoricalRates(t *testing.T) {
	chart := &mockHistorical{}
	h := newTestServer(&mockQuotes{}, WithHistoricalSource(SourceMarketChart, chart, false))

	rec, _ := get(t, h, "/api/historical-rates/daily?symbols=btc,eth,doge")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Symbol{"BTC", "ETH"}, chart.symbols)
	assert.JSONEq(t, `{
		"success": true,
		"timeframe": "daily",
		"rates": {
			"BTC": {"2026-10-16T10:00:00.000Z": 100, "2026-10-16T11:00:00.000Z": 101},
			"ETH": {"2026-10-16T10:00:00.000Z": null, "2026-10-16T11:00:00.000Z": null}
		},
		"timestamps": ["2026-10-16T10:00:00.000Z", "2026-10-16T11:00:00.000Z"]
	}`, rec.Body.String())

	rec, _ = get(t, h, "/api/historical-rates/weekly/refresh?symbols=BTC")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, chart.refreshed)
}

func TestHistoricalRatesValidation(t *testing.T) {
	store := &mockHistorical{}
	h := newTestServer(&mockQuotes{},
		WithHistoricalSource(SourceMarketChart, &mockHistorical{}, false),
		WithHistoricalSource(SourceStore, store, true))

	tests := []struct {
		name    string
		target  string
		status  int
		message string
	}{
		{name: "bad timeframe", target: "/api/historical-rates/yearly?symbols=BTC", status: http.StatusBadRequest, message: msgInvalidTimeframe},
		{name: "bad timeframe refresh", target: "/api/historical-rates/hourly/refresh?symbols=BTC", status: http.StatusBadRequest, message: msgInvalidTimeframe},
		{name: "no symbols", target: "/api/historical-rates/daily", status: http.StatusBadRequest, message: msgNoValidSymbols},
		{name: "unsupported symbols", target: "/api/historical-rates/daily?symbols=XRP,ADA", status: http.StatusBadRequest, message: msgNoValidSymbols},
		{name: "unknown source", target: "/api/historical-rates/daily?symbols=BTC&source=bloomberg", status: http.StatusBadRequest, message: "Invalid source. Must be one of: marketchart, store"},
		{name: "store without symbols", target: "/api/historical-rates/daily?source=store", status: http.StatusOK},
		{name: "store bad symbols", target: "/api/historical-rates/daily?source=store&symbols=XRP", status: http.StatusBadRequest, message: msgNoValidSymbols},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			require.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestHistoricalRatesSourceFailure(t *testing.T) {
	h := newTestServer(&mockQuotes{},
		WithHistoricalSource(SourceFX, &mockHistorical{err: errors.Wrap(domain.ErrUpstream, "invalid access key")}, true),
		WithDefaultSource(SourceFX))

	rec, body := get(t, h, "/api/historical-rates/monthly")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgHistoricalFailed, body["error"])
}

func TestTimeframeOnly(t *testing.T) {
	calls := 0
	fn := func(_ context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error) {
		calls++
		return domain.NewResultBuilder(tf).Build(), nil
	}
	h := newTestServer(&mockQuotes{}, WithHistoricalSource(SourceFX, TimeframeOnly(fn, fn), true))

	rec, body := get(t, h, "/api/historical-rates/daily?source=FX")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{}, body["rates"])
	assert.Equal(t, []any{}, body["timestamps"])
	assert.Equal(t, 1, calls)
}

func TestHealth(t *testing.T) {
	last := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	h := newTestServer(&mockQuotes{}, WithHistoryStatus(fixedStatus{ts: last}, pricehistory.InitStatus{State: pricehistory.InitReady}))

	rec, body := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["store"])
	assert.Equal(t, "2026-10-17T09:00:00.000Z", body["lastUpdate"])

	degraded := newTestServer(&mockQuotes{}, WithHistoryStatus(fixedStatus{}, pricehistory.InitStatus{
		State: pricehistory.InitDegraded,
		Err:   errors.New("unexpected end of JSON input"),
	}))
	rec, body = get(t, degraded, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["store"])
	assert.Nil(t, body["lastUpdate"])
}

func TestSnapshotStream(t *testing.T) {
	journal := &mockJournal{snapshots: []domain.QuoteSnapshot{
		{Timestamp: ts0, Data: []domain.Quote{{Symbol: "BTC", Price: decimal.NewFromInt(1)}}},
		{Timestamp: ts1, Data: []domain.Quote{{Symbol: "BTC", Price: decimal.NewFromInt(2)}}},
	}}
	h := newTestServer(&mockQuotes{}, WithJournal(journal))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market-data/stream", nil).WithContext(ctx))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: quotes\n"))
	assert.Contains(t, body, `"timestamp":"2026-10-16T11:00:00.000Z"`)
}

func TestSnapshotStreamSameTimestamp(t *testing.T) {
	journal := &mockJournal{snapshots: []domain.QuoteSnapshot{
		{Timestamp: ts1, Data: []domain.Quote{{Symbol: "BTC", Price: decimal.NewFromInt(1)}}},
		{Timestamp: ts1, Data: []domain.Quote{{Symbol: "BTC", Price: decimal.NewFromInt(2)}}},
		{Timestamp: ts0, Data: []domain.Quote{{Symbol: "BTC", Price: decimal.NewFromInt(3)}}},
	}}
	h := newTestServer(&mockQuotes{}, WithJournal(journal))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market-data/stream", nil).WithContext(ctx))

	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: quotes\n"))
	assert.Contains(t, body, "id: 2\n")
	assert.Contains(t, body, "id: 3\n")
}

func TestSnapshotStreamWithoutJournal(t *testing.T) {
	rec, _ := get(t, newTestServer(&mockQuotes{}), "/api/market-data/stream")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(&mockQuotes{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
