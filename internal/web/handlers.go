package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const (
	msgInvalidTimeframe = "Invalid timeframe. Must be one of: daily, weekly, monthly"
	msgNoValidSymbols   = "No valid symbols provided"
	msgQuotesFailed     = "Failed to fetch latest prices"
	msgHistoricalFailed = "Failed to fetch historical rates"
)

type historicalQuery struct {
	Symbols string `schema:"symbols"`
	Source  string `schema:"source"`
}

type quotesResponse struct {
	Success   bool           `json:"success"`
	Timestamp string         `json:"timestamp"`
	Data      []domain.Quote `json:"data"`
}

type historicalResponse struct {
	Success    bool                                     `json:"success"`
	Timeframe  domain.Timeframe                         `json:"timeframe"`
	Rates      map[domain.Symbol]map[string]domain.Rate `json:"rates"`
	Timestamps []string                                 `json:"timestamps"`
}

type healthResponse struct {
	Success    bool    `json:"success"`
	Store      string  `json:"store"`
	StoreError string  `json:"storeError,omitempty"`
	LastUpdate *string `json:"lastUpdate"`
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	s.serveQuotes(w, r, s.quotes.Latest)
}

func (s *Server) handleMarketDataRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveQuotes(w, r, s.quotes.Refresh)
}

func (s *Server) serveQuotes(w http.ResponseWriter, r *http.Request, action func(context.Context) (domain.QuoteSnapshot, error)) {
	snapshot, err := action(r.Context())
	if err != nil {
		s.l.Error("market data request failed", zap.String("request_id", requestID(r)), zap.Error(err))
		jsonFailure(w, http.StatusInternalServerError, msgQuotesFailed)
		return
	}

	data := snapshot.Data
	if data == nil {
		data = []domain.Quote{}
	}
	jsonData(w, quotesResponse{
		Success:   true,
		Timestamp: domain.FormatTimestamp(snapshot.Timestamp),
		Data:      data,
	})
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	s.serveHistorical(w, r, false)
}

func (s *Server) handleHistoricalRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveHistorical(w, r, true)
}

func (s *Server) serveHistorical(w http.ResponseWriter, r *http.Request, refresh bool) {
	tf := domain.Timeframe(mux.Vars(r)["timeframe"])
	if !tf.IsValid() {
		jsonFailure(w, http.StatusBadRequest, msgInvalidTimeframe)
		return
	}

	var query historicalQuery
	if err := s.queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		s.l.Debug("decode historical query", zap.Error(err))
		jsonFailure(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	name := strings.ToLower(strings.TrimSpace(query.Source))
	if name == "" {
		name = s.defaultSource
	}
	entry, ok := s.historical[name]
	if !ok {
		jsonFailure(w, http.StatusBadRequest, "Invalid source. Must be one of: "+strings.Join(s.sourceNames(), ", "))
		return
	}

	symbols := domain.ParseSymbols(query.Symbols, s.symbols)
	if len(symbols) == 0 && (symbols != nil || !entry.symbolsOptional) {
		jsonFailure(w, http.StatusBadRequest, msgNoValidSymbols)
		return
	}

	action := entry.source.Get
	if refresh {
		action = entry.source.Refresh
	}

	result, err := action(r.Context(), tf, symbols)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			jsonFailure(w, http.StatusBadRequest, msgNoValidSymbols)
			return
		}
		s.l.Error("historical rates request failed",
			zap.String("request_id", requestID(r)),
			zap.String("source", name),
			zap.String("timeframe", tf.String()),
			zap.Error(err))
		jsonFailure(w, http.StatusInternalServerError, msgHistoricalFailed)
		return
	}

	rates, timestamps := result.Wire()
	jsonData(w, historicalResponse{
		Success:    true,
		Timeframe:  tf,
		Rates:      rates,
		Timestamps: timestamps,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Success: s.initStatus.OK(),
		Store:   string(s.initStatus.State),
	}
	if s.initStatus.Err != nil {
		resp.StoreError = s.initStatus.Err.Error()
	}
	if s.history != nil {
		if ts, ok := s.history.LastUpdate(); ok {
			formatted := domain.FormatTimestamp(ts)
			resp.LastUpdate = &formatted
		}
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusServiceUnavailable
	}
	jsonStatus(w, status, resp)
}

// historicalFunc adapts producers that do not filter by symbol.
type historicalFunc struct {
	get     func(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error)
	refresh func(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error)
}

// TimeframeOnly wraps a producer that always returns its whole symbol set.
func TimeframeOnly(
	get func(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error),
	refresh func(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error),
) HistoricalSource {
	return historicalFunc{get: get, refresh: refresh}
}

func (h historicalFunc) Get(ctx context.Context, tf domain.Timeframe, _ []domain.Symbol) (*domain.HistoricalResult, error) {
	return h.get(ctx, tf)
}

func (h historicalFunc) Refresh(ctx context.Context, tf domain.Timeframe, _ []domain.Symbol) (*domain.HistoricalResult, error) {
	return h.refresh(ctx, tf)
}
