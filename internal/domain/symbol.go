// Package domain defines core data structures shared by the price history services.
package domain

import "strings"

// Symbol crypto asset ticker, always upper-case.
type Symbol string

// DefaultSymbols supported set used when config does not override it.
var DefaultSymbols = []Symbol{"BTC", "ETH", "USDC", "SHIB", "LCX", "DOGE", "LINK", "SOL"}

// String returns the string representation.
func (s Symbol) String() string {
	return string(s)
}

// NewSymbol normalizes raw ticker input.
func NewSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

// ParseSymbols splits a comma separated list and keeps only supported symbols.
// Matching is case-insensitive, duplicates are dropped and input order is kept.
func ParseSymbols(raw string, supported []Symbol) []Symbol {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	allowed := make(map[Symbol]struct{}, len(supported))
	for _, s := range supported {
		allowed[s] = struct{}{}
	}

	seen := make(map[Symbol]struct{})
	result := make([]Symbol, 0)
	for _, part := range strings.Split(raw, ",") {
		symbol := NewSymbol(part)
		if _, ok := allowed[symbol]; !ok {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		result = append(result, symbol)
	}

	return result
}

// JoinSymbols returns the symbols as a comma separated list.
func JoinSymbols(symbols []Symbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
