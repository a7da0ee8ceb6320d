// Package app wires config into the storage, services and HTTP server.
package app

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/config"
	"github.com/vadiminshakov/coinrates/internal/clients"
	"github.com/vadiminshakov/coinrates/internal/domain"
	"github.com/vadiminshakov/coinrates/internal/services/fx"
	"github.com/vadiminshakov/coinrates/internal/services/history"
	"github.com/vadiminshakov/coinrates/internal/services/marketchart"
	"github.com/vadiminshakov/coinrates/internal/services/quotes"
	"github.com/vadiminshakov/coinrates/internal/storage/pricehistory"
	"github.com/vadiminshakov/coinrates/internal/storage/snapshots"
	"github.com/vadiminshakov/coinrates/internal/throttle"
	"github.com/vadiminshakov/coinrates/internal/web"
)

const journalDir = "wal"

// App a fully wired price service.
type App struct {
	server  *web.Server
	store   *pricehistory.Store
	status  pricehistory.InitStatus
	journal *snapshots.WALStore
	caches  *cacheProvider
	l       *zap.Logger
}

// New builds every component from cfg. The history store never fails
// construction: a degraded store is reported through Status and /healthz.
func New(ctx context.Context, cfg config.Config, l *zap.Logger) (*App, error) {
	store, status := pricehistory.Open(filepath.Join(cfg.DataDir, pricehistory.DefaultFileName), l)
	if !status.OK() {
		l.Warn("price history running on empty state", zap.String("state", string(status.State)), zap.Error(status.Err))
	}

	journal, err := snapshots.NewWALStore(filepath.Join(cfg.DataDir, journalDir), l)
	if err != nil {
		return nil, err
	}

	caches, err := newCacheProvider(ctx, cfg.Cache, l)
	if err != nil {
		_ = journal.Close()
		return nil, errors.Wrap(err, "init cache")
	}

	quoteSource, err := newQuoteSource(cfg)
	if err != nil {
		_ = journal.Close()
		_ = caches.Close()
		return nil, err
	}

	quoteSvc := quotes.NewService(
		quoteSource,
		store,
		newCache[domain.QuoteSnapshot](caches, "quotes", cfg.Cache.QuoteTTL),
		cfg.Symbols,
		l.Named("quotes"),
		quotes.WithJournal(journal),
	)

	chart := marketchart.NewAggregator(
		clients.NewCoinGecko(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, "eur", cfg.CoinGeckoIDs, cfg.HTTPTimeout),
		throttle.NewInterval(cfg.PacingInterval),
		newCache[*domain.HistoricalResult](caches, "marketchart", cfg.Cache.HistoricalTTL),
		l.Named("marketchart"),
	)

	rates := fx.NewAggregator(
		clients.NewExchangeRates(cfg.ExchangeRates.BaseURL, cfg.ExchangeRates.APIKey, vsCurrency, cfg.HTTPTimeout),
		cfg.Symbols,
		newCache[*domain.HistoricalResult](caches, "fx", cfg.Cache.HistoricalTTL),
		l.Named("fx"),
		fx.WithMissingAsZero(cfg.FXMissingAsZero),
	)

	server := web.NewServer(cfg.Addr(), quoteSvc, cfg.Symbols, l.Named("http"),
		web.WithHistoricalSource(web.SourceMarketChart, chart, false),
		web.WithHistoricalSource(web.SourceFX, web.TimeframeOnly(rates.Get, rates.Refresh), true),
		web.WithHistoricalSource(web.SourceStore, history.NewReader(store, cfg.Symbols), true),
		web.WithDefaultSource(cfg.HistoricalSource),
		web.WithJournal(journal),
		web.WithHistoryStatus(store, status),
	)

	return &App{
		server:  server,
		store:   store,
		status:  status,
		journal: journal,
		caches:  caches,
		l:       l,
	}, nil
}

// Status reports how the history store came up.
func (a *App) Status() pricehistory.InitStatus {
	return a.status
}

// Handler returns the HTTP handler of the app.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Start(ctx)
}

// Close releases the journal and cache connections.
func (a *App) Close() error {
	journalErr := a.journal.Close()
	if err := a.caches.Close(); err != nil {
		return errors.Wrap(err, "close cache")
	}
	return errors.Wrap(journalErr, "close journal")
}
