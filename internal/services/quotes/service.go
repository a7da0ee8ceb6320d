// Package quotes serves the latest multi-symbol price snapshot from a
// short-lived cache and records every fresh snapshot in the price history.
package quotes

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/cache"
	"github.com/vadiminshakov/coinrates/internal/domain"
)

// CacheKey the single key the latest snapshot is cached under.
const CacheKey = "latest_prices"

// QuoteSource fetches current quotes for many symbols in one request.
type QuoteSource interface {
	LatestQuotes(ctx context.Context, symbols []domain.Symbol) (map[domain.Symbol]domain.Quote, error)
}

// HistoryAppender durable per-symbol price history.
type HistoryAppender interface {
	Append(snapshot map[domain.Symbol]decimal.Decimal, at time.Time) error
}

// Journal records snapshots for streaming.
type Journal interface {
	Append(snapshot domain.QuoteSnapshot) error
}

// Service quote snapshot cache.
type Service struct {
	source  QuoteSource
	history HistoryAppender
	journal Journal
	symbols []domain.Symbol
	loader  *cache.Loader[domain.QuoteSnapshot]
	now     func() time.Time
	l       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithJournal records every fresh snapshot in j.
func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

// NewService creates a quote service for symbols.
func NewService(
	source QuoteSource,
	history HistoryAppender,
	c cache.Cache[domain.QuoteSnapshot],
	symbols []domain.Symbol,
	l *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		source:  source,
		history: history,
		symbols: symbols,
		loader:  cache.NewLoader(c, l),
		now:     time.Now,
		l:       l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the cached snapshot or fetches a new one.
func (s *Service) Latest(ctx context.Context) (domain.QuoteSnapshot, error) {
	return s.loader.Get(ctx, CacheKey, s.fetch)
}

// Refresh discards the cached snapshot and fetches a new one.
func (s *Service) Refresh(ctx context.Context) (domain.QuoteSnapshot, error) {
	return s.loader.Refresh(ctx, CacheKey, s.fetch)
}

func (s *Service) fetch(ctx context.Context) (domain.QuoteSnapshot, bool, error) {
	quotes, err := s.source.LatestQuotes(ctx, s.symbols)
	if err != nil {
		s.l.Error("failed to fetch latest prices", zap.Error(err))
		return domain.QuoteSnapshot{}, false, errors.Wrap(err, "failed to fetch latest prices")
	}

	snapshot := domain.QuoteSnapshot{
		Timestamp: domain.NormalizeTime(s.now()),
		Data:      make([]domain.Quote, 0, len(s.symbols)),
	}
	for _, symbol := range s.symbols {
		if q, ok := quotes[symbol]; ok {
			q.Symbol = symbol
			snapshot.Data = append(snapshot.Data, q)
		}
	}

	// history failures are logged by the store and never fail the request
	_ = s.history.Append(snapshot.Prices(), snapshot.Timestamp)

	if s.journal != nil {
		if err := s.journal.Append(snapshot); err != nil {
			s.l.Warn("failed to journal quote snapshot", zap.Error(err))
		}
	}

	return snapshot, true, nil
}
