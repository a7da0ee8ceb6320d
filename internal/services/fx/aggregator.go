// Package fx builds historical results from a single multi-symbol daily
// time-series request.
package fx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/cache"
	"github.com/vadiminshakov/coinrates/internal/clients"
	"github.com/vadiminshakov/coinrates/internal/domain"
)

// TimeSeriesSource fetches daily rates of many symbols over a date range.
type TimeSeriesSource interface {
	TimeSeries(ctx context.Context, start, end time.Time, symbols []domain.Symbol) ([]clients.DailyRates, error)
}

// Aggregator time-series backed historical producer.
type Aggregator struct {
	source        TimeSeriesSource
	symbols       []domain.Symbol
	missingAsZero bool
	now           func() time.Time
	loader        *cache.Loader[*domain.HistoricalResult]
	l             *zap.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to compute the date range.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithMissingAsZero reports a symbol missing on a date as 0 instead of null.
func WithMissingAsZero(enabled bool) Option {
	return func(a *Aggregator) {
		a.missingAsZero = enabled
	}
}

// NewAggregator creates an aggregator over the supported symbols.
func NewAggregator(
	source TimeSeriesSource,
	symbols []domain.Symbol,
	c cache.Cache[*domain.HistoricalResult],
	l *zap.Logger,
	opts ...Option,
) *Aggregator {
	a := &Aggregator{
		source:  source,
		symbols: symbols,
		now:     time.Now,
		loader:  cache.NewLoader(c, l),
		l:       l,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CacheKey returns the cache key of a timeframe.
func CacheKey(tf domain.Timeframe) string {
	return "historical_rates_" + tf.String()
}

// Get returns daily rates of every supported symbol over tf.
func (a *Aggregator) Get(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error) {
	if !tf.IsValid() {
		return nil, errors.Wrapf(domain.ErrValidation, "invalid timeframe %q", tf)
	}
	return a.loader.Get(ctx, CacheKey(tf), a.fetcher(tf))
}

// Refresh discards the cached result of tf and rebuilds it.
func (a *Aggregator) Refresh(ctx context.Context, tf domain.Timeframe) (*domain.HistoricalResult, error) {
	if !tf.IsValid() {
		return nil, errors.Wrapf(domain.ErrValidation, "invalid timeframe %q", tf)
	}
	return a.loader.Refresh(ctx, CacheKey(tf), a.fetcher(tf))
}

func (a *Aggregator) fetcher(tf domain.Timeframe) cache.FetchFunc[*domain.HistoricalResult] {
	return func(ctx context.Context) (*domain.HistoricalResult, bool, error) {
		end := a.now().UTC().Truncate(24 * time.Hour)
		start := end.AddDate(0, 0, -tf.Spec().Days)

		series, err := a.source.TimeSeries(ctx, start, end, a.symbols)
		if err != nil {
			a.l.Error("failed to fetch historical rates", zap.String("timeframe", tf.String()), zap.Error(err))
			return nil, false, errors.Wrap(err, "failed to fetch historical rates")
		}

		builder := domain.NewResultBuilder(tf)
		for _, day := range series {
			for _, symbol := range a.symbols {
				rate, ok := day.Rates[symbol]
				switch {
				case ok:
					builder.Add(symbol, day.Date, rate)
				case a.missingAsZero:
					builder.Add(symbol, day.Date, decimal.Zero)
				default:
					builder.AddAbsent(symbol, day.Date)
				}
			}
		}

		return builder.Build(), true, nil
	}
}
