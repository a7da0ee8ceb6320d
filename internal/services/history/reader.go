// Package history serves historical results straight from the durable price history.
package history

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

// Store reads historical results from persisted snapshots.
type Store interface {
	Read(tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error)
}

// Reader store-backed historical producer. It never calls an upstream and has no cache.
type Reader struct {
	store   Store
	symbols []domain.Symbol
}

// NewReader creates a reader. symbols is the set used when a query names none.
func NewReader(store Store, symbols []domain.Symbol) *Reader {
	return &Reader{store: store, symbols: symbols}
}

// Get reads symbols over tf from the store.
func (r *Reader) Get(_ context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	if !tf.IsValid() {
		return nil, errors.Wrapf(domain.ErrValidation, "invalid timeframe %q", tf)
	}
	if len(symbols) == 0 {
		symbols = r.symbols
	}
	return r.store.Read(tf, symbols)
}

// Refresh is Get: the store is always current.
func (r *Reader) Refresh(ctx context.Context, tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	return r.Get(ctx, tf, symbols)
}
