package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Quote current price of a single symbol.
type Quote struct {
	Symbol    Symbol          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
}

// MarshalJSON renders decimals as plain JSON numbers.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol    Symbol      `json:"symbol"`
		Price     json.Number `json:"price"`
		Change24h json.Number `json:"change24h"`
	}{
		Symbol:    q.Symbol,
		Price:     json.Number(q.Price.String()),
		Change24h: json.Number(q.Change24h.String()),
	})
}

// QuoteSnapshot multi-symbol quote taken at a single instant.
type QuoteSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Data      []Quote   `json:"data"`
}

// Prices returns the snapshot as a symbol to price mapping.
func (s QuoteSnapshot) Prices() map[Symbol]decimal.Decimal {
	prices := make(map[Symbol]decimal.Decimal, len(s.Data))
	for _, q := range s.Data {
		prices[q.Symbol] = q.Price
	}
	return prices
}

// MarshalJSON renders the timestamp in TimestampLayout and never emits a null data list.
func (s QuoteSnapshot) MarshalJSON() ([]byte, error) {
	data := s.Data
	if data == nil {
		data = []Quote{}
	}
	return json.Marshal(struct {
		Timestamp string  `json:"timestamp"`
		Data      []Quote `json:"data"`
	}{
		Timestamp: FormatTimestamp(s.Timestamp),
		Data:      data,
	})
}

// QuoteSnapshotRecord journaled snapshot with its position in the journal.
type QuoteSnapshotRecord struct {
	Index    uint64
	Snapshot QuoteSnapshot
}
