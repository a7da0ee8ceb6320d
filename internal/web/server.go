// Package web exposes the price APIs over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
	"github.com/vadiminshakov/coinrates/internal/storage/pricehistory"
)

const snapshotPollInterval = 2 * time.Second

// Historical source names accepted by the source query parameter.
const (
	SourceMarketChart = "marketchart"
	SourceFX          = "fx"
	SourceStore       = "store"
)

// QuoteService latest multi-symbol snapshot.
type QuoteService interface {
	Latest(ctx context.Context) (domain.QuoteSnapshot, error)
	Refresh(ctx context.Context) (domain.QuoteSnapshot, error)
}

// HistoricalSource producer of historical results.
type HistoricalSource interface {
	Get(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error)
	Refresh(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error)
}

// SnapshotReader journal of quote snapshots.
type SnapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.QuoteSnapshotRecord, error)
}

// HistoryStatus durable history diagnostics.
type HistoryStatus interface {
	LastUpdate() (time.Time, bool)
}

type historicalEntry struct {
	source          HistoricalSource
	symbolsOptional bool
}

// Server exposes the market data, historical rates and snapshot stream endpoints.
type Server struct {
	Addr          string
	quotes        QuoteService
	historical    map[string]historicalEntry
	defaultSource string
	symbols       []domain.Symbol
	journal       SnapshotReader
	history       HistoryStatus
	initStatus    pricehistory.InitStatus
	queryDecoder  *schema.Decoder
	l             *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistoricalSource registers src under name. Requests to a source with
// symbolsOptional may omit symbols and get every supported symbol.
func WithHistoricalSource(name string, src HistoricalSource, symbolsOptional bool) Option {
	return func(s *Server) {
		s.historical[name] = historicalEntry{source: src, symbolsOptional: symbolsOptional}
	}
}

// WithDefaultSource sets the source used when a request names none.
func WithDefaultSource(name string) Option {
	return func(s *Server) {
		s.defaultSource = name
	}
}

// WithJournal enables the snapshot stream.
func WithJournal(j SnapshotReader) Option {
	return func(s *Server) {
		s.journal = j
	}
}

// WithHistoryStatus reports the history store on the health endpoint.
func WithHistoryStatus(h HistoryStatus, status pricehistory.InitStatus) Option {
	return func(s *Server) {
		s.history = h
		s.initStatus = status
	}
}

// NewServer creates a new web server instance.
func NewServer(addr string, quotes QuoteService, symbols []domain.Symbol, l *zap.Logger, opts ...Option) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		Addr:          addr,
		quotes:        quotes,
		historical:    make(map[string]historicalEntry),
		defaultSource: SourceMarketChart,
		symbols:       symbols,
		initStatus:    pricehistory.InitStatus{State: pricehistory.InitReady},
		queryDecoder:  decoder,
		l:             l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/market-data", s.handleMarketData).Methods(http.MethodGet)
	api.HandleFunc("/market-data/refresh", s.handleMarketDataRefresh).Methods(http.MethodGet)
	api.HandleFunc("/market-data/stream", s.handleSnapshotStream).Methods(http.MethodGet)
	api.HandleFunc("/historical-rates/{timeframe}", s.handleHistorical).Methods(http.MethodGet)
	api.HandleFunc("/historical-rates/{timeframe}/refresh", s.handleHistoricalRefresh).Methods(http.MethodGet)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonFailure(w, http.StatusNotFound, "Not found")
	})

	router.Use(s.requestLogger)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(router)
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sourceNames() []string {
	names := make([]string, 0, len(s.historical))
	for name := range s.historical {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
