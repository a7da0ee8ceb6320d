// Package marketchart builds historical results from per-symbol market chart
// series, fetched one symbol at a time under an upstream pacing constraint.
package marketchart

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/cache"
	"github.com/vadiminshakov/coinrates/internal/domain"
	"github.com/vadiminshakov/coinrates/internal/throttle"
)

// lookback days requested per timeframe. Daily asks for two days so the
// hourly series always covers a full 24h.
var lookback = map[domain.Timeframe]int{
	domain.TimeframeDaily:   2,
	domain.TimeframeWeekly:  7,
	domain.TimeframeMonthly: 30,
}

// ChartSource fetches the price series of one symbol.
type ChartSource interface {
	Supports(symbol domain.Symbol) bool
	MarketChart(ctx context.Context, symbol domain.Symbol, days int) ([]domain.PricePoint, error)
}

// Aggregator market chart backed historical producer.
type Aggregator struct {
	source   ChartSource
	throttle throttle.Throttle
	loader   *cache.Loader[*domain.HistoricalResult]
	l        *zap.Logger
}

// NewAggregator creates an aggregator. t paces consecutive upstream requests.
func NewAggregator(source ChartSource, t throttle.Throttle, c cache.Cache[*domain.HistoricalResult], l *zap.Logger) *Aggregator {
	if t == nil {
		t = throttle.None{}
	}
	return &Aggregator{
		source:   source,
		throttle: t,
		loader:   cache.NewLoader(c, l),
		l:        l,
	}
}

// CacheKey returns the cache key of a query. Symbol order does not matter.
func CacheKey(tf domain.Timeframe, symbols []domain.Symbol) string {
	sorted := make([]string, len(symbols))
	for i, s := range symbols {
		sorted[i] = s.String()
	}
	sort.Strings(sorted)
	return "historical_" + tf.String() + "_" + strings.Join(sorted, ",")
}

// Get returns the historical result of symbols over tf, from cache when possible.
//
// Symbols whose series cannot be fetched are logged and left out of the result.
// A result with no data at all is returned but not cached.
func (a *Aggregator) Get(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	if err := validate(tf, symbols); err != nil {
		return nil, err
	}
	return a.loader.Get(ctx, CacheKey(tf, symbols), a.fetcher(tf, symbols))
}

// Refresh discards the cached result of the query and rebuilds it.
func (a *Aggregator) Refresh(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	if err := validate(tf, symbols); err != nil {
		return nil, err
	}
	return a.loader.Refresh(ctx, CacheKey(tf, symbols), a.fetcher(tf, symbols))
}

func (a *Aggregator) fetcher(tf domain.Timeframe, symbols []domain.Symbol) cache.FetchFunc[*domain.HistoricalResult] {
	return func(ctx context.Context) (*domain.HistoricalResult, bool, error) {
		days := lookback[tf]
		builder := domain.NewResultBuilder(tf)
		succeeded := make([]domain.Symbol, 0, len(symbols))
		produced := false

		for _, symbol := range symbols {
			if !a.source.Supports(symbol) {
				a.l.Debug("no market chart mapping for symbol", zap.String("symbol", symbol.String()))
				continue
			}
			if err := a.throttle.Wait(ctx); err != nil {
				return nil, false, errors.Wrap(err, "wait for upstream pacing")
			}

			points, err := a.source.MarketChart(ctx, symbol, days)
			if err != nil {
				a.l.Warn("failed to fetch market chart",
					zap.String("symbol", symbol.String()),
					zap.String("timeframe", tf.String()),
					zap.Error(err))
				continue
			}

			for _, p := range points {
				builder.Add(symbol, p.Timestamp, p.Price)
			}
			succeeded = append(succeeded, symbol)
			produced = produced || len(points) > 0
		}

		builder.Fill(succeeded)
		return builder.Build(), produced, nil
	}
}

func validate(tf domain.Timeframe, symbols []domain.Symbol) error {
	if !tf.IsValid() {
		return errors.Wrapf(domain.ErrValidation, "invalid timeframe %q", tf)
	}
	if len(symbols) == 0 {
		return errors.Wrap(domain.ErrValidation, "no valid symbols provided")
	}
	return nil
}
