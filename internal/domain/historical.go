package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// HistoricalResult canonical output of every historical producer.
//
// Timestamps are sorted ascending without duplicates. Rates are keyed by
// unix milliseconds of a timestamp in Timestamps.
type HistoricalResult struct {
	Timeframe  Timeframe
	Timestamps []time.Time
	Rates      map[Symbol]map[int64]Rate
}

// Symbols returns the symbols that have a rates entry, sorted.
func (r *HistoricalResult) Symbols() []Symbol {
	symbols := make([]Symbol, 0, len(r.Rates))
	for s := range r.Rates {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

// Rate returns the rate of symbol at ts and whether the entry exists at all.
func (r *HistoricalResult) Rate(symbol Symbol, ts time.Time) (Rate, bool) {
	series, ok := r.Rates[symbol]
	if !ok {
		return Absent(), false
	}
	rate, ok := series[NormalizeTime(ts).UnixMilli()]
	return rate, ok
}

// IsEmpty reports whether no symbol produced data.
func (r *HistoricalResult) IsEmpty() bool {
	return len(r.Rates) == 0
}

type historicalWire struct {
	Timeframe  Timeframe                  `json:"timeframe"`
	Rates      map[Symbol]map[string]Rate `json:"rates"`
	Timestamps []string                   `json:"timestamps"`
}

// Wire returns the rates and timestamps in their JSON shape, keyed by ISO timestamp.
func (r *HistoricalResult) Wire() (map[Symbol]map[string]Rate, []string) {
	timestamps := make([]string, len(r.Timestamps))
	for i, ts := range r.Timestamps {
		timestamps[i] = FormatTimestamp(ts)
	}

	rates := make(map[Symbol]map[string]Rate, len(r.Rates))
	for symbol, series := range r.Rates {
		out := make(map[string]Rate, len(series))
		for ms, rate := range series {
			out[FormatTimestamp(time.UnixMilli(ms))] = rate
		}
		rates[symbol] = out
	}

	return rates, timestamps
}

// MarshalJSON renders the canonical wire shape without the success flag.
func (r *HistoricalResult) MarshalJSON() ([]byte, error) {
	rates, timestamps := r.Wire()
	return json.Marshal(historicalWire{Timeframe: r.Timeframe, Rates: rates, Timestamps: timestamps})
}

// UnmarshalJSON decodes the canonical wire shape.
func (r *HistoricalResult) UnmarshalJSON(data []byte) error {
	var wire historicalWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Wrap(err, "decode historical result")
	}

	builder := NewResultBuilder(wire.Timeframe)
	for _, raw := range wire.Timestamps {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return err
		}
		builder.AddTimestamp(ts)
	}
	for symbol, series := range wire.Rates {
		builder.ensure(symbol)
		for raw, rate := range series {
			ts, err := ParseTimestamp(raw)
			if err != nil {
				return err
			}
			builder.set(symbol, ts, rate)
		}
	}

	*r = *builder.Build()
	return nil
}

// ResultBuilder accumulates observations into a HistoricalResult.
type ResultBuilder struct {
	timeframe  Timeframe
	timestamps map[int64]time.Time
	rates      map[Symbol]map[int64]Rate
}

// NewResultBuilder creates an empty builder.
func NewResultBuilder(tf Timeframe) *ResultBuilder {
	return &ResultBuilder{
		timeframe:  tf,
		timestamps: make(map[int64]time.Time),
		rates:      make(map[Symbol]map[int64]Rate),
	}
}

// AddTimestamp registers ts without attaching a price to any symbol.
func (b *ResultBuilder) AddTimestamp(ts time.Time) {
	ts = NormalizeTime(ts)
	b.timestamps[ts.UnixMilli()] = ts
}

// Add records price of symbol at ts. A later observation for the same pair wins.
func (b *ResultBuilder) Add(symbol Symbol, ts time.Time, price decimal.Decimal) {
	b.set(symbol, ts, Present(price))
}

// AddAbsent records an explicit gap of symbol at ts.
func (b *ResultBuilder) AddAbsent(symbol Symbol, ts time.Time) {
	b.set(symbol, ts, Absent())
}

// Has reports whether symbol has any entry.
func (b *ResultBuilder) Has(symbol Symbol) bool {
	_, ok := b.rates[symbol]
	return ok
}

// Fill gives every listed symbol an entry for every known timestamp, absent where nothing was observed.
func (b *ResultBuilder) Fill(symbols []Symbol) {
	for _, symbol := range symbols {
		series := b.ensure(symbol)
		for ms := range b.timestamps {
			if _, ok := series[ms]; !ok {
				series[ms] = Absent()
			}
		}
	}
}

// Build returns the result with sorted timestamps.
func (b *ResultBuilder) Build() *HistoricalResult {
	timestamps := make([]time.Time, 0, len(b.timestamps))
	for _, ts := range b.timestamps {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	rates := make(map[Symbol]map[int64]Rate, len(b.rates))
	for symbol, series := range b.rates {
		copied := make(map[int64]Rate, len(series))
		for ms, rate := range series {
			copied[ms] = rate
		}
		rates[symbol] = copied
	}

	return &HistoricalResult{Timeframe: b.timeframe, Timestamps: timestamps, Rates: rates}
}

func (b *ResultBuilder) set(symbol Symbol, ts time.Time, rate Rate) {
	b.AddTimestamp(ts)
	b.ensure(symbol)[NormalizeTime(ts).UnixMilli()] = rate
}

func (b *ResultBuilder) ensure(symbol Symbol) map[int64]Rate {
	series, ok := b.rates[symbol]
	if !ok {
		series = make(map[int64]Rate)
		b.rates[symbol] = series
	}
	return series
}
